package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	dirPerm  = os.FileMode(0o755)
	filePerm = os.FileMode(0o644)
)

// Storage provides a simple file-based storage backend.
// It stores files under a base directory on the local filesystem.
type Storage struct {
	basePath string
}

// NewStorage creates a new Storage rooted at basePath.
func NewStorage(basePath string) *Storage {
	return &Storage{basePath: basePath}
}

// EnsureDir creates the base directory and any missing parents.
// Existing contents are left untouched.
func (s *Storage) EnsureDir() error {
	if err := os.MkdirAll(s.basePath, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", s.basePath, err)
	}

	return nil
}

// Save writes src to subdir/filename under the base directory, replacing
// any existing file with the same name. Returns the written path.
func (s *Storage) Save(_ context.Context, subdir, filename string, src io.Reader) (path string, err error) {
	dir := filepath.Join(s.basePath, subdir)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	dstPath := filepath.Join(dir, filename)
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", dstPath, err)
	}

	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			path = ""
			err = fmt.Errorf("failed to close file %s: %w", dstPath, cerr)
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}

	return dstPath, nil
}

// Load opens subdir/filename for reading.
func (s *Storage) Load(_ context.Context, subdir, filename string) (io.ReadCloser, error) {
	path := filepath.Join(s.basePath, subdir, filename)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load file %s: %w", path, err)
	}

	return f, nil
}
