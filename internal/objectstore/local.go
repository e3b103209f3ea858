package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore keeps objects as files under a root directory. The API server
// serves that directory at PublicBaseURL.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates root if needed and returns a LocalStore.
func NewLocalStore(root, publicBaseURL string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local object store root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create object store root: %w", err)
	}
	return &LocalStore{root: root, baseURL: publicBaseURL}, nil
}

// Root returns the directory objects are written to.
func (s *LocalStore) Root() string { return s.root }

// Put writes body to key atomically via a temp file and rename.
func (s *LocalStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if err := validateKey(key); err != nil {
		return err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("commit object %s: %w", key, err)
	}
	return nil
}

// Delete removes keys; missing keys are ignored.
func (s *LocalStore) Delete(_ context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			errs = append(errs, err)
			continue
		}
		err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("delete object %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// PublicURL returns the URL the API server serves key at.
func (s *LocalStore) PublicURL(key string) string {
	return joinURL(s.baseURL, key)
}
