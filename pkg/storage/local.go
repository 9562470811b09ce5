package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage persists bucket objects on disk under a base directory.
type LocalStorage struct {
	baseDir string
	baseURL string
	signer  *SignedURLSigner
}

// NewLocalStorage ensures the base directory exists and returns a handle.
// Signed URLs point at baseURL and are resolved by the file download endpoint.
func NewLocalStorage(baseDir, baseURL string, signer *SignedURLSigner) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/"), signer: signer}, nil
}

// Put copies the reader into bucket/key.
func (s *LocalStorage) Put(ctx context.Context, bucket, key string, r io.ReadSeeker, contentType string) (*Object, error) {
	target, err := s.resolve(bucket, key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("prepare object directory: %w", err)
	}
	file, err := os.Create(target)
	if err != nil {
		return nil, fmt.Errorf("create object file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	written, err := io.Copy(file, r)
	if err != nil {
		return nil, fmt.Errorf("write object stream: %w", err)
	}
	return &Object{
		Bucket:      bucket,
		Key:         key,
		URL:         s.PublicURL(bucket, key),
		Size:        written,
		ContentType: contentType,
	}, nil
}

// Open returns a read-only handle for the stored object.
func (s *LocalStorage) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	target, err := s.resolve(bucket, key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object file: %w", err)
	}
	return file, nil
}

// Delete removes a stored object if present.
func (s *LocalStorage) Delete(ctx context.Context, bucket, key string) error {
	target, err := s.resolve(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object file: %w", err)
	}
	return nil
}

// PublicURL returns the public address of an object under the configured base URL.
func (s *LocalStorage) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/public/%s/%s", s.baseURL, url.PathEscape(bucket), escapeKey(key))
}

// SignedURL issues a time-limited download link resolved by ResolveToken.
func (s *LocalStorage) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if s.signer == nil {
		return "", fmt.Errorf("signed urls not configured")
	}
	token, _, err := s.signer.GenerateWithTTL(bucket, key, ttl)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/signed/%s", s.baseURL, token), nil
}

// ResolveToken validates a signed download token and returns the referenced object location.
func (s *LocalStorage) ResolveToken(token string) (bucket, key string, err error) {
	if s.signer == nil {
		return "", "", fmt.Errorf("signed urls not configured")
	}
	bucket, key, _, err = s.signer.Parse(token, false)
	return bucket, key, err
}

func (s *LocalStorage) resolve(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key required")
	}
	target := filepath.Join(s.baseDir, bucket, filepath.FromSlash(key))
	root := filepath.Join(s.baseDir, bucket) + string(filepath.Separator)
	if !strings.HasPrefix(target, root) {
		return "", fmt.Errorf("object key escapes bucket")
	}
	return target, nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
