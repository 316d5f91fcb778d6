// Package storage persists uploaded print artifacts on disk. The job
// store only holds the returned path; artifact bytes never live in the
// database.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	return &DiskStore{dir: abs}, nil
}

// Save writes the artifact under a uuid-prefixed name and returns its
// path. The original filename is kept only as a suffix for operators
// reading the directory; path traversal in it is stripped.
func (s *DiskStore) Save(filename string, r io.Reader) (string, error) {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "document.pdf"
	}

	path := filepath.Join(s.dir, uuid.NewString()+"_"+base)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return path, nil
}

// Open streams a stored artifact. Paths outside the storage directory
// are refused, so a corrupted artifact path in the store cannot leak
// arbitrary files.
func (s *DiskStore) Open(path string) (io.ReadCloser, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact path: %w", err)
	}
	if !strings.HasPrefix(abs, s.dir+string(filepath.Separator)) {
		return nil, fmt.Errorf("artifact path outside storage directory")
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return f, nil
}
