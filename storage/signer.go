package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// URLSigner 把存储中的对象路径转换为可直接播放的地址
type URLSigner interface {
	SignURL(ctx context.Context, objectKey string) (string, error)
}

// MinioURLSigner 生成带有效期的预签名下载地址
type MinioURLSigner struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewMinioURLSigner(client *minio.Client, bucket string, expiry time.Duration) *MinioURLSigner {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &MinioURLSigner{client: client, bucket: bucket, expiry: expiry}
}

func (s *MinioURLSigner) SignURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, strings.TrimPrefix(objectKey, "/"), s.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectKey, err)
	}
	return u.String(), nil
}

// StaticURLSigner 未配置 MinIO 时直接拼接静态文件地址
type StaticURLSigner struct {
	base string
}

func NewStaticURLSigner(base string) *StaticURLSigner {
	return &StaticURLSigner{base: strings.TrimRight(base, "/")}
}

func (s *StaticURLSigner) SignURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	if strings.HasPrefix(objectKey, "http://") || strings.HasPrefix(objectKey, "https://") {
		return objectKey, nil
	}
	parts := strings.Split(strings.TrimPrefix(objectKey, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.base + "/" + strings.Join(parts, "/"), nil
}
