package storage

import (
	"context"
	"io"
)

// Blob is the byte-storage boundary. Delete is idempotent: removing a path
// that no longer holds bytes is success.
type Blob interface {
	Write(ctx context.Context, path string, body io.Reader, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}
