package repository

import (
	"context"
	"io"
)

// ObjectStorage defines the interface for object storage operations.
// Implementations should be provided by the infrastructure layer (e.g., MinIO, S3).
// The bucket is passed per call because sources arrive from whichever bucket
// emitted the trigger event.
type ObjectStorage interface {
	// Download retrieves an object from the storage.
	// Returns ErrObjectNotFound if the key does not exist.
	// Caller is responsible for closing the returned ReadCloser.
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Upload stores an object in the storage, overwriting any existing object.
	Upload(ctx context.Context, bucket, key string, reader io.Reader, contentType string) error

	// Exists checks if an object exists in the storage.
	Exists(ctx context.Context, bucket, key string) (bool, error)
}
