package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/printly/printly-backend/pkg/config"
	"github.com/printly/printly-backend/pkg/logger"
)

// Store is the blob-store collaborator: uploads go in at intake time, deletes
// happen when a file is detached from an order. The order record stays
// authoritative; Delete failures are surfaced so callers can log and move on.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New selects a driver from configuration.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg)
	case "s3":
		return NewS3Store(ctx, cfg, logg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
