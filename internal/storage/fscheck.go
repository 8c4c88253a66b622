package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// remoteTypes are filesystem names that do not honor the advisory locks
// sqlite and unix sockets depend on.
var remoteTypes = []string{"afpfs", "afs", "ceph", "cifs", "fuse.sshfs", "nfs", "nfs4", "smb2", "smbfs", "webdav"}

// RemoteFSError is returned when a path resolves onto a network mount.
type RemoteFSError struct {
	Path   string
	FSType string
}

func (e *RemoteFSError) Error() string {
	return fmt.Sprintf("%q is on network filesystem %q; excbridge requires a local filesystem for sqlite and socket locking, set events.journal_path and socket.path to local disk", e.Path, e.FSType)
}

// CheckLocalFilesystem returns a *RemoteFSError when path, or the closest
// ancestor that exists, is on a network mount.
func CheckLocalFilesystem(path string) error {
	return checkWith(path, fsTypeOf)
}

func checkWith(path string, typeOf func(string) (string, error)) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is empty")
	}
	probe, err := existingAncestor(path)
	if err != nil {
		return fmt.Errorf("resolve path %q: %w", path, err)
	}
	fsType, err := typeOf(probe)
	if err != nil {
		return fmt.Errorf("detect filesystem for %q: %w", probe, err)
	}
	if isRemote(fsType) {
		return &RemoteFSError{Path: path, FSType: fsType}
	}
	return nil
}

// existingAncestor walks up from path until it finds something to stat;
// files that do not exist yet are judged by the directory they will land in.
func existingAncestor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for dir := abs; ; {
		_, err := os.Stat(dir)
		switch {
		case err == nil:
			return dir, nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", err
		}
		up := filepath.Dir(dir)
		if up == dir {
			return "", fmt.Errorf("no existing ancestor of %q", abs)
		}
		dir = up
	}
}

func isRemote(fsType string) bool {
	name := strings.ToLower(strings.TrimSpace(fsType))
	for _, r := range remoteTypes {
		if name == r {
			return true
		}
	}
	return false
}
