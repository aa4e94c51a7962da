package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openrecords/docindex/internal/errors"
)

// FilesystemStore is a Store backed by a local directory tree. Keys map
// directly onto paths relative to root; the '/'-delimited prefixes
// (files/, images/) become subdirectories.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates a FilesystemStore rooted at dir, creating it if
// it does not exist.
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", dir, err)
	}
	return &FilesystemStore{root: dir}, nil
}

func (s *FilesystemStore) path(key string) (string, error) {
	if key == "" || len(key) > MaxKeyLength {
		return "", errors.InvalidArgument(fmt.Sprintf("invalid blob key length: %d", len(key)))
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *FilesystemStore) Put(ctx context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directories for %s: %w", key, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize blob %s: %w", key, err)
	}
	return nil
}

func (s *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("blob", key)
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

func (s *FilesystemStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// URL returns a file:// URL for local inspection. A deployment using the
// remote backend would return a presigned HTTP URL instead; the two
// implementations share the Store interface so callers do not care which is
// active.
func (s *FilesystemStore) URL(ctx context.Context, key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	return "file://" + p, nil
}

func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}
