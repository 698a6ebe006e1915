package history

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// CheckFileSize reports the size of path against the large-file threshold.
// A file of exactly the threshold does not exceed it.
func (m *Manager) CheckFileSize(path string) (FileSizeInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileSizeInfo{}, fmt.Errorf("checking size of %s: %w", path, err)
	}
	size := uint64(info.Size())
	limit := m.largeFiles.ThresholdBytes()
	return FileSizeInfo{
		Path:             path,
		SizeBytes:        size,
		ExceedsThreshold: size > limit,
		ThresholdBytes:   limit,
	}, nil
}

// IsLargeFile reports whether path exceeds the large-file threshold.
func (m *Manager) IsLargeFile(path string) (bool, error) {
	info, err := m.CheckFileSize(path)
	if err != nil {
		return false, err
	}
	return info.ExceedsThreshold, nil
}

// pointerFor returns the git-lfs style pointer text recorded in place of a
// large file's content.
func pointerFor(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}
	return []byte(fmt.Sprintf("version https://git-lfs.github.com/spec/v1\noid sha256:%s\nsize %d\n",
		hex.EncodeToString(h.Sum(nil)), n)), nil
}

// IsPointer reports whether content is a large-file pointer rather than the
// file itself.
func IsPointer(content []byte) bool {
	const prefix = "version https://git-lfs.github.com/spec/v1\n"
	return len(content) < 512 && len(content) >= len(prefix) && string(content[:len(prefix)]) == prefix
}
