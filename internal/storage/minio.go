package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/models"
)

// MinIOStorage stores media in a MinIO bucket.
type MinIOStorage struct {
	client  *minio.Client
	bucket  string
	region  string
	baseURL string
}

// NewMinIOStorage builds a client for cfg.Endpoint (host:port, no scheme).
func NewMinIOStorage(cfg config.MediaConfig) (*MinIOStorage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("minio storage: bucket is required")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	if endpoint == "" {
		return nil, fmt.Errorf("minio storage: endpoint is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = client.EndpointURL().String() + "/" + cfg.Bucket
	}
	return &MinIOStorage{client: client, bucket: cfg.Bucket, region: cfg.Region, baseURL: baseURL}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (m *MinIOStorage) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	return nil
}

// Upload streams obj into the bucket. A Size of zero or less lets the client buffer
// the body in multipart chunks.
func (m *MinIOStorage) Upload(ctx context.Context, obj Object) (models.MediaObject, error) {
	if err := validate(obj); err != nil {
		return models.MediaObject{}, err
	}
	key := objectKey(obj.Kind, obj.Name)
	size := obj.Size
	if size <= 0 {
		size = -1
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, obj.Body, size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return models.MediaObject{}, fmt.Errorf("minio storage upload %s: %w", key, err)
	}
	return models.MediaObject{URL: publicURL(m.baseURL, key), PublicID: key}, nil
}

// Delete removes the object.
func (m *MinIOStorage) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	if err := m.client.RemoveObject(ctx, m.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio storage delete %s: %w", publicID, err)
	}
	return nil
}
