package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Config carries connection settings for an S3 compatible object store.
type S3Config struct {
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	PublicBaseURL  string
}

// S3Storage stores objects in S3 compatible buckets.
type S3Storage struct {
	client  s3iface.S3API
	presign func(bucket, key string, ttl time.Duration) (string, error)
	baseURL string
	cfg     S3Config
}

// NewS3Storage opens an AWS session against the configured endpoint.
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create s3 session: %w", err)
	}
	client := s3.New(sess)
	store := NewS3StorageWithClient(client, cfg)
	store.presign = func(bucket, key string, ttl time.Duration) (string, error) {
		req, _ := client.GetObjectRequest(&s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		return req.Presign(ttl)
	}
	return store, nil
}

// NewS3StorageWithClient wraps an existing client, mainly for tests.
func NewS3StorageWithClient(client s3iface.S3API, cfg S3Config) *S3Storage {
	return &S3Storage{
		client:  client,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		cfg:     cfg,
	}
}

// Put uploads the stream to bucket/key.
func (s *S3Storage) Put(ctx context.Context, bucket, key string, r io.ReadSeeker, contentType string) (*Object, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("measure object: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind object: %w", err)
	}
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("upload object: %w", err)
	}
	return &Object{
		Bucket:      bucket,
		Key:         key,
		URL:         s.PublicURL(bucket, key),
		Size:        size,
		ContentType: contentType,
	}, nil
}

// Open streams the object body. Callers must close the reader.
func (s *S3Storage) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("download object: %w", err)
	}
	return out.Body, nil
}

// Delete removes bucket/key. Missing objects are not an error.
func (s *S3Storage) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// PublicURL returns the object address, preferring the configured CDN base.
func (s *S3Storage) PublicURL(bucket, key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.baseURL, bucket, escapeKey(key))
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(s.cfg.Endpoint, "https://"), "http://")
	if endpoint == "" {
		endpoint = fmt.Sprintf("s3.%s.amazonaws.com", s.cfg.Region)
	}
	if s.cfg.ForcePathStyle {
		return fmt.Sprintf("https://%s/%s/%s", endpoint, bucket, escapeKey(key))
	}
	return fmt.Sprintf("https://%s.%s/%s", bucket, endpoint, escapeKey(key))
}

// SignedURL presigns a GET request for ttl.
func (s *S3Storage) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if s.presign == nil {
		return "", fmt.Errorf("presigning not available")
	}
	url, err := s.presign(bucket, key, ttl)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return url, nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return true
		}
	}
	return false
}
