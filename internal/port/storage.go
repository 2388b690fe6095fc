package port

import (
	"context"
	"io"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStore is the external object storage holding raw source documents.
type ObjectStore interface {
	// Upload stores the content and returns the generated object key.
	Upload(ctx context.Context, name, filename, contentType string, content io.Reader, size int64) (string, error)

	List(ctx context.Context) ([]ObjectInfo, error)

	Download(ctx context.Context, key string) ([]byte, error)
}
