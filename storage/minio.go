package storage

import (
	"context"
	"fmt"
	"time"

	"QueueFM/config"
	"QueueFM/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewMinioClient 根据配置创建 MinIO 客户端。
// 指定 Region 后预签名不需要访问服务端查询存储桶位置。
func NewMinioClient(cfg *config.Config) (*minio.Client, error) {
	if cfg.MinioEndpoint == "" {
		return nil, fmt.Errorf("MinIO endpoint not configured")
	}
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return client, nil
}

// CheckBucket 确认音频存储桶存在
func CheckBucket(ctx context.Context, client *minio.Client, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", bucket)
	}

	logger.Info("MinIO 存储桶可用", logger.String("bucket", bucket))
	return nil
}
