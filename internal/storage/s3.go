package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/models"
)

// S3Storage stores media in an S3-compatible bucket.
type S3Storage struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewS3Storage configures a client and uploader for cfg.Bucket. A custom Endpoint
// switches to path-style addressing for S3-compatible services.
func NewS3Storage(ctx context.Context, cfg config.MediaConfig) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		creds := aws.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey, Source: "clipcast"}
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 8 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		if endpoint != "" {
			baseURL = strings.TrimSuffix(endpoint, "/") + "/" + cfg.Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Storage{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		baseURL:  baseURL,
	}, nil
}

// Upload streams obj into the bucket under a generated key.
func (s *S3Storage) Upload(ctx context.Context, obj Object) (models.MediaObject, error) {
	if err := validate(obj); err != nil {
		return models.MediaObject{}, err
	}
	key := objectKey(obj.Kind, obj.Name)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   obj.Body,
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return models.MediaObject{}, fmt.Errorf("s3 storage upload %s: %w", key, err)
	}
	return models.MediaObject{URL: publicURL(s.baseURL, key), PublicID: key}, nil
}

// Delete removes the object. Deleting a missing key succeeds.
func (s *S3Storage) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("s3 storage delete %s: %w", publicID, err)
	}
	return nil
}
