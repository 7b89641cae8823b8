package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
)

var ErrInvalidKey = errors.New("invalid object key")

// ImageStore persists uploaded scan images and returns the URL they are served from.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

func NewImageStore(ctx context.Context, cfg config.StorageConfig, logger *logging.Service) (ImageStore, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL, logger)
	case "s3":
		return NewS3Store(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.ReplaceAll(key, "\\", "/"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
