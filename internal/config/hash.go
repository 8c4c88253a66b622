package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// ChecksumSuffix names the sidecar file pinning a config's BLAKE3 hash.
const ChecksumSuffix = ".b3"

// ErrChecksumMismatch means a config file no longer matches its sidecar.
var ErrChecksumMismatch = errors.New("config: checksum mismatch")

// Fingerprint is the hex BLAKE3-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return Fingerprint(data), nil
}

// ChecksumPath returns the sidecar path for a config file.
func ChecksumPath(configPath string) string {
	return configPath + ChecksumSuffix
}

// WriteChecksum pins the current contents of configPath in its sidecar and
// returns the hash written.
func WriteChecksum(configPath string) (string, error) {
	hash, err := ComputeBlake3Hash(configPath)
	if err != nil {
		return "", err
	}
	line := fmt.Sprintf("%s  %s\n", hash, filepath.Base(configPath))
	if err := os.WriteFile(ChecksumPath(configPath), []byte(line), 0o644); err != nil {
		return "", fmt.Errorf("write checksum: %w", err)
	}
	return hash, nil
}

// VerifyChecksum compares data against the sidecar of configPath. A missing
// sidecar is not an error: pinning is opt-in.
func VerifyChecksum(configPath string, data []byte) error {
	b, err := os.ReadFile(ChecksumPath(configPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read checksum: %w", err)
	}
	fields := strings.Fields(string(b))
	if len(fields) == 0 {
		return fmt.Errorf("checksum file %s is empty", ChecksumPath(configPath))
	}
	if got := Fingerprint(data); got != fields[0] {
		return fmt.Errorf("%w for %s: expected %s, got %s",
			ErrChecksumMismatch, filepath.Base(configPath), fields[0], got)
	}
	return nil
}
