package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when a bucket key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object describes a stored file.
type Object struct {
	Bucket      string
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// ObjectStorage abstracts the bucket-oriented file store used for documents and media.
type ObjectStorage interface {
	Put(ctx context.Context, bucket, key string, r io.ReadSeeker, contentType string) (*Object, error)
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// JoinKey builds an object key from path segments, dropping empty parts.
func JoinKey(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return path.Join(cleaned...)
}
