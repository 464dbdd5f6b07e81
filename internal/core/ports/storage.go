// internal/core/ports/storage.go
package ports

import (
	"context"
	"io"
	"time"
)

// StorageClient stores prescription documents and generated reports.
type StorageClient interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	GetPresignedURL(ctx context.Context, key string, duration time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}
