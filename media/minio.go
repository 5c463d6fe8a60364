// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package media stores audit snapshots and session recordings in a MinIO
// (S3-compatible) bucket.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether enough settings are present to connect.
func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and creates the bucket if it does not
// exist yet.
func NewMinioStore(ctx context.Context, cfg Config) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		slog.Info("media bucket created", "bucket", cfg.Bucket)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads one object and returns its URL. An extension matching the
// content type is appended to key.
func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	object := ObjectName(key, contentType)
	_, err := m.client.PutObject(ctx, m.bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", object, err)
	}
	return ObjectURL(m.client.EndpointURL(), m.bucket, object), nil
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"video/webm": ".webm",
	"video/mp4":  ".mp4",
	"audio/webm": ".weba",
}

// ObjectName appends the extension for contentType to key, unless key
// already has one.
func ObjectName(key, contentType string) string {
	key = strings.TrimPrefix(key, "/")
	if path.Ext(key) != "" {
		return key
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	return key + extensions[strings.TrimSpace(strings.ToLower(mediaType))]
}

func ObjectURL(endpoint *url.URL, bucket, object string) string {
	u := *endpoint
	u.Path = path.Join("/", bucket, object)
	return u.String()
}
