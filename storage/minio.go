package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/drummonds/resumefeedback/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/oklog/ulid/v2"
)

// MinioStore keeps files in an S3 compatible bucket
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the bucket, creating it when configured to
func NewMinioStore(ctx context.Context, cfg config.StorageConfig) (*MinioStore, error) {
	if cfg.S3Endpoint == "" {
		return nil, errors.New("minio storage needs S3_ENDPOINT")
	}
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if !cfg.S3CreateBucket {
			return nil, fmt.Errorf("bucket %q does not exist", cfg.S3Bucket)
		}
		if err := client.MakeBucket(ctx, cfg.S3Bucket, minio.MakeBucketOptions{Region: cfg.S3Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.S3Bucket, err)
		}
		Logger.Info("Created bucket", "bucket", cfg.S3Bucket)
	}
	Logger.Info("Using S3 file storage", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	return &MinioStore{client: client, bucket: cfg.S3Bucket}, nil
}

func (s *MinioStore) Upload(ctx context.Context, name, contentType string, data []byte) (FSItem, error) {
	id := ulid.Make()
	key := objectName(id, name)
	now := time.Now()
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"uploaded-at": now.Format(time.RFC3339)},
	})
	if err != nil {
		return FSItem{}, fmt.Errorf("upload failed: %w", err)
	}
	return FSItem{
		ID:      id.String(),
		Name:    name,
		Path:    key,
		Type:    "file",
		Size:    int64(len(data)),
		Mime:    contentType,
		Created: now,
	}, nil
}

func (s *MinioStore) Read(ctx context.Context, path string) ([]byte, error) {
	if !ValidPath(path) {
		return nil, fmt.Errorf("invalid path %q: %w", path, ErrNotFound)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (s *MinioStore) Delete(ctx context.Context, path string) error {
	if !ValidPath(path) {
		return fmt.Errorf("invalid path %q: %w", path, ErrNotFound)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
