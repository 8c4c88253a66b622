package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedType(name string) func(string) (string, error) {
	return func(string) (string, error) { return name, nil }
}

func TestCheckWith(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "journal.db")
	for _, tc := range []struct {
		fsType string
		remote bool
	}{
		{"apfs", false},
		{"ext4", false},
		{"0x6969", false},
		{"nfs", true},
		{"SMBFS", true},
		{" ceph ", true},
		{"fuse.sshfs", true},
	} {
		err := checkWith(dbPath, fixedType(tc.fsType))
		if !tc.remote {
			assert.NoError(t, err, tc.fsType)
			continue
		}
		var remote *RemoteFSError
		require.True(t, errors.As(err, &remote), "%s: %v", tc.fsType, err)
		assert.Equal(t, dbPath, remote.Path)
		assert.Contains(t, err.Error(), "events.journal_path")
	}
}

func TestCheckWithProbesExistingAncestor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var probed string
	err := checkWith(filepath.Join(root, "run", "deep", "excbridge.sock"), func(p string) (string, error) {
		probed = p
		return "tmpfs", nil
	})
	require.NoError(t, err)
	assert.Equal(t, root, probed)
}

func TestCheckWithEmptyPath(t *testing.T) {
	t.Parallel()
	assert.Error(t, checkWith("  ", fixedType("ext4")))
}

func TestCheckLocalFilesystemTempDir(t *testing.T) {
	t.Parallel()
	// CI temp dirs are always local.
	assert.NoError(t, CheckLocalFilesystem(filepath.Join(t.TempDir(), "x.db")))
}
