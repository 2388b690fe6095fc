package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"urpaq/internal/port"
)

const keyPrefix = "documents/"

// S3Store is an S3-compatible object store holding raw source documents.
type S3Store struct {
	client *minio.Client
	bucket string
	log    *zap.SugaredLogger
}

// NewS3Store connects to the configured endpoint. Credentials come from the
// named environment variables.
func NewS3Store(endpoint, bucket, accessKeyEnv, secretKeyEnv string, useSSL bool, log *zap.SugaredLogger) (*S3Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv(accessKeyEnv), os.Getenv(secretKeyEnv), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	log.Infow("initialized object store", "endpoint", endpoint, "bucket", bucket)

	return &S3Store{client: client, bucket: bucket, log: log}, nil
}

// Upload stores the content under documents/<name>/<ts>-<uuid>-<filename>
// and returns the object key.
func (s *S3Store) Upload(ctx context.Context, name, filename, contentType string, content io.Reader, size int64) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("%s%s/%d-%s-%s", keyPrefix, name, time.Now().UnixMilli(), uuid.NewString(), filename)

	_, err := s.client.PutObject(ctx, s.bucket, key, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	s.log.Infow("uploaded object", "key", key)
	return key, nil
}

// List returns every object in the bucket.
func (s *S3Store) List(ctx context.Context) ([]port.ObjectInfo, error) {
	var objects []port.ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		objects = append(objects, port.ObjectInfo{Key: obj.Key, Size: obj.Size})
	}
	return objects, nil
}

// Download returns the object's content.
func (s *S3Store) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}
