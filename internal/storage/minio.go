package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"vocata/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioDriver struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinioDriver(cfg config.MinioConfig) (*MinioDriver, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	base := cfg.PublicURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &MinioDriver{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(base, "/") + "/" + cfg.Bucket,
	}, nil
}

func (d *MinioDriver) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := d.client.PutObject(ctx, d.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (d *MinioDriver) Delete(ctx context.Context, key string) error {
	err := d.client.RemoveObject(ctx, d.bucket, key, minio.RemoveObjectOptions{})
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}

func (d *MinioDriver) GetURL(key string) (string, error) {
	return d.baseURL + "/" + key, nil
}

func (d *MinioDriver) KeyFromURL(url string) (string, bool) {
	return trimURLKey(url, d.baseURL)
}
