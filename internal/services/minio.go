package services

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioService wraps the object storage bucket all lead documents live in.
type MinioService struct {
	Client     *minio.Client
	BucketName string
}

func NewMinioService(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	// Create bucket if it doesn't exist
	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %v", err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %v", err)
		}
		log.Printf("Created bucket: %s", bucket)
	}

	log.Println("Connected to MinIO successfully")
	return &MinioService{Client: client, BucketName: bucket}, nil
}

// CheckConnection is used by health checks.
func (m *MinioService) CheckConnection() error {
	if m == nil || m.Client == nil {
		return fmt.Errorf("minio service not initialized")
	}
	_, err := m.Client.BucketExists(context.Background(), m.BucketName)
	return err
}

func (m *MinioService) Upload(ctx context.Context, reader io.Reader, size int64, objectName, contentType string) error {
	_, err := m.Client.PutObject(
		ctx,
		m.BucketName,
		objectName,
		reader,
		size,
		minio.PutObjectOptions{
			ContentType: contentType,
		},
	)
	return err
}

func (m *MinioService) Download(ctx context.Context, objectName, localFilePath string) error {
	return m.Client.FGetObject(ctx, m.BucketName, objectName, localFilePath, minio.GetObjectOptions{})
}

func (m *MinioService) Delete(ctx context.Context, objectName string) error {
	return m.Client.RemoveObject(ctx, m.BucketName, objectName, minio.RemoveObjectOptions{})
}

// DeleteObjectsByPrefix removes everything under a lead's namespace. Used
// when a lead is deleted upstream.
func (m *MinioService) DeleteObjectsByPrefix(ctx context.Context, prefix string) error {
	log.Printf("[MinIO] Starting deletion for prefix: %s (bucket: %s)", prefix, m.BucketName)

	objectsCh := m.Client.ListObjects(ctx, m.BucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	errorCh := m.Client.RemoveObjects(ctx, m.BucketName, objectsCh, minio.RemoveObjectsOptions{})
	for removeErr := range errorCh {
		if removeErr.Err != nil {
			log.Printf("[MinIO] Failed to delete object %s: %v", removeErr.ObjectName, removeErr.Err)
			return removeErr.Err
		}
	}

	log.Printf("[MinIO] Deleted objects with prefix %s", prefix)
	return nil
}

// GetContentType maps a file extension to a MIME type for storage.
func GetContentType(extension string) string {
	switch extension {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
