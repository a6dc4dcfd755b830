package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/printly/printly-backend/pkg/config"
)

// LocalStore writes blobs under a directory on the shop machine. This is the
// default driver for a single-host deployment.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore prepares the upload directory.
func NewLocalStore(cfg config.StorageConfig) (*LocalStore, error) {
	if cfg.LocalDir == "" {
		return nil, fmt.Errorf("storage local dir is required")
	}
	if err := os.MkdirAll(cfg.LocalDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &LocalStore{dir: cfg.LocalDir, baseURL: strings.TrimSuffix(cfg.BaseURL, "/")}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cleaned), 0o755); err != nil {
		return "", fmt.Errorf("creating blob dir: %w", err)
	}

	f, err := os.Create(cleaned)
	if err != nil {
		return "", fmt.Errorf("creating blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		os.Remove(cleaned)
		return "", fmt.Errorf("writing blob: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleaned, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(cleaned); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// resolve rejects keys that escape the storage root.
func (s *LocalStore) resolve(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	if cleaned == "/" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(cleaned)), nil
}
