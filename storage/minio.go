package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"taller-backend/models"
	"taller-backend/utils/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// MinioStorage keeps service photos in a single bucket
type MinioStorage struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	logger logger.Logger
}

// NewMinioStorage connects to MinIO and creates the photo bucket if needed
func NewMinioStorage(ctx context.Context, cfg *models.Config, log logger.Logger) (*MinioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	s := &MinioStorage{
		client: client,
		bucket: cfg.MinioBucket,
		expiry: cfg.MinioPresignExpiry,
		logger: log,
	}
	if s.expiry <= 0 {
		s.expiry = 15 * time.Minute
	}

	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (s *MinioStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	s.logger.Infof("Bucket %s created successfully", s.bucket)
	return nil
}

// PresignUpload returns a URL the caller can PUT the image bytes to, and the object key
func (s *MinioStorage) PresignUpload(ctx context.Context, serviceID, contentType string) (string, string, error) {
	key := ObjectKey(serviceID, contentType)

	url, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.expiry)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), key, nil
}

// RemoveObject deletes an object. Removing a missing object succeeds.
func (s *MinioStorage) RemoveObject(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	s.logger.Infof("Object %s deleted", key)
	return nil
}

// ObjectKey builds a unique key under the service's prefix
func ObjectKey(serviceID, contentType string) string {
	ext, ok := extensions[contentType]
	if !ok {
		ext = ".bin"
	}
	return path.Join("services", serviceID, uuid.NewString()+ext)
}
