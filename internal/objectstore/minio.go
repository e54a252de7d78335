package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIO stores photos in an S3 compatible bucket.
type MinIO struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIO creates a MinIO client and ensures the bucket exists. publicURL
// is the base photos are served from; it defaults to the endpoint itself.
func NewMinIO(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, publicURL string) (*MinIO, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}

	store := &MinIO{client: client, bucket: bucket, publicURL: publicURL}
	if err := store.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket %s exists: %w", bucket, err)
	}
	return store, nil
}

// ensureBucketExists creates the bucket if it doesn't exist
func (s *MinIO) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload puts the object into the bucket
func (s *MinIO) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the object URL under the configured public base
func (s *MinIO) PublicURL(key string) string {
	return joinURL(s.publicURL, key)
}

// Open downloads the object
func (s *MinIO) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return object, nil
}

var _ Store = (*MinIO)(nil)
