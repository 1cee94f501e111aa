package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"video-service/pkg/config"
	"video-service/pkg/logger"
)

// MinioArchiver copies uploaded source files into object storage before the
// pipeline deletes them, keeping a re-transcode path open.
type MinioArchiver struct {
	client     *minio.Client
	bucketName string
}

func NewMinioArchiver(cfg config.MinioConfig) (*MinioArchiver, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("minio bucket_name is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	a := &MinioArchiver{client: client, bucketName: cfg.BucketName}
	if err := a.ensureBucket(context.Background()); err != nil {
		return nil, err
	}

	logger.Info("MinIO archiver initialized", map[string]interface{}{
		"endpoint":    cfg.Endpoint,
		"bucket_name": cfg.BucketName,
	})
	return a, nil
}

func (a *MinioArchiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucketName)
	if err != nil {
		return fmt.Errorf("check minio bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create minio bucket: %w", err)
	}
	return nil
}

// ArchiveSource uploads the local source file under sources/{assetId}/ and
// returns the object key.
func (a *MinioArchiver) ArchiveSource(ctx context.Context, localPath, assetID string) (string, error) {
	objectKey := fmt.Sprintf("sources/%s/%s", assetID, filepath.Base(localPath))
	_, err := a.client.FPutObject(ctx, a.bucketName, objectKey, localPath, minio.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return "", fmt.Errorf("upload source: %w", err)
	}
	return objectKey, nil
}
