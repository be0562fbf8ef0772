package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage is the blob store behind archived submission sources.
type ObjectStorage interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, opts PutOptions) error

	// Get opens an object. The caller closes the reader.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// PutOptions carries the headers stored with an object.
type PutOptions struct {
	ContentType     string
	ContentEncoding string

	// Metadata is stored as user metadata (x-amz-meta-*).
	Metadata map[string]string
}
