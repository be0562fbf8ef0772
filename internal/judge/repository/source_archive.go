package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"codejudge/internal/common/storage"

	"github.com/klauspost/compress/zstd"
)

const (
	defaultSourcePrefix = "submissions"
	sourceContentType   = "application/zstd"
)

// SourceArchive keeps a copy of every submitted source outside the database.
type SourceArchive interface {
	// Put stores source for a submission and returns the object key.
	Put(ctx context.Context, submissionID, source string) (string, error)
	Get(ctx context.Context, objectKey string) (string, error)
}

// ObjectSourceArchive stores zstd-compressed sources in an object store bucket.
type ObjectSourceArchive struct {
	storage storage.ObjectStorage
	bucket  string
	prefix  string
}

// NewObjectSourceArchive creates a source archive. An empty prefix defaults to "submissions".
func NewObjectSourceArchive(store storage.ObjectStorage, bucket, prefix string) (*ObjectSourceArchive, error) {
	if store == nil {
		return nil, errors.New("object storage is required")
	}
	if bucket == "" {
		return nil, errors.New("source bucket is required")
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = defaultSourcePrefix
	}
	return &ObjectSourceArchive{storage: store, bucket: bucket, prefix: prefix}, nil
}

func (a *ObjectSourceArchive) Put(ctx context.Context, submissionID, source string) (string, error) {
	if submissionID == "" {
		return "", errors.New("submissionID is required")
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return "", fmt.Errorf("create zstd writer failed: %w", err)
	}
	if _, err := io.WriteString(enc, source); err != nil {
		_ = enc.Close()
		return "", fmt.Errorf("compress source failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("compress source failed: %w", err)
	}

	key := fmt.Sprintf("%s/%s/source.zst", a.prefix, submissionID)
	opts := storage.PutOptions{
		ContentType: sourceContentType,
		Metadata:    map[string]string{"submission-id": submissionID},
	}
	if err := a.storage.Put(ctx, a.bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), opts); err != nil {
		return "", fmt.Errorf("upload source failed: %w", err)
	}
	return key, nil
}

func (a *ObjectSourceArchive) Get(ctx context.Context, objectKey string) (string, error) {
	obj, err := a.storage.Get(ctx, a.bucket, objectKey)
	if err != nil {
		return "", fmt.Errorf("open source failed: %w", err)
	}
	defer obj.Close()

	dec, err := zstd.NewReader(obj)
	if err != nil {
		return "", fmt.Errorf("create zstd reader failed: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return "", fmt.Errorf("decompress source failed: %w", err)
	}
	return string(raw), nil
}
