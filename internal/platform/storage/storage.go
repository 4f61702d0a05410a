package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hrpay/internal/platform/config"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// Store keeps generated documents. Put returns a location string suitable for
// persisting next to the owning record; Get and Delete take the object key.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

func New(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StorageProvider {
	case config.StorageGCS:
		return NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON)
	case config.StorageLocal, "":
		return NewLocal(cfg.StorageDir)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
	}
}

// KeyFromLocation recovers the object key from a location returned by Put.
func KeyFromLocation(location string) (string, error) {
	scheme, rest, ok := strings.Cut(location, "://")
	if !ok || rest == "" {
		return "", ErrInvalidKey
	}
	switch scheme {
	case "local":
		return rest, nil
	case "gs":
		_, key, ok := strings.Cut(rest, "/")
		if !ok || key == "" {
			return "", ErrInvalidKey
		}
		return key, nil
	default:
		return "", ErrInvalidKey
	}
}
