package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var _ Store = (*LocalStore)(nil)

// LocalStore writes objects below a root directory that the HTTP server
// exposes under PublicBaseURL.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("local store: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local store: ensure root directory: %w", err)
	}
	return &LocalStore{root: dir, baseURL: publicBaseURL}, nil
}

// Root returns the directory objects are written to.
func (s *LocalStore) Root() string {
	return s.root
}

// Backend implements Store.
func (s *LocalStore) Backend() string {
	return BackendLocal
}

// Put writes body to root/key.
func (s *LocalStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (*Object, error) {
	fullPath, err := s.absolute(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("local store: mkdir: %w", err)
	}

	fh, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("local store: create file: %w", err)
	}
	written, copyErr := io.Copy(fh, body)
	closeErr := fh.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("local store: write file: %w", errors.Join(copyErr, closeErr))
	}

	return &Object{
		Key:         key,
		URL:         publicURL(s.baseURL, key),
		ContentType: contentType,
		Size:        written,
	}, nil
}

// Delete removes root/key.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	fullPath, err := s.absolute(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("local store: delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) absolute(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("local store: key is required")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("local store: key %q escapes root", key)
	}
	return filepath.Join(s.root, clean), nil
}
