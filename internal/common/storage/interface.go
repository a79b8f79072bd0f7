package storage

import (
	"context"
	"io"
)

// ObjectReader is a readable object stream.
type ObjectReader interface {
	io.ReadCloser
}

// ObjectStorage abstracts the object store used for submission sources
// and media files.
type ObjectStorage interface {
	// PutObject stores an object under bucket/objectKey.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error

	// GetObject opens an object for reading.
	GetObject(ctx context.Context, bucket, objectKey string) (ObjectReader, error)

	// RemoveObject deletes an object.
	RemoveObject(ctx context.Context, bucket, objectKey string) error
}
