package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"vocata/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type OSSDriver struct {
	bucket  *oss.Bucket
	baseURL string
}

func NewOSSDriver(cfg config.OSSConfig) (*OSSDriver, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("oss endpoint and bucket are required")
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create oss client: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open oss bucket: %w", err)
	}

	host := cfg.Endpoint
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	return &OSSDriver{
		bucket:  bucket,
		baseURL: "https://" + cfg.Bucket + "." + strings.TrimSuffix(host, "/"),
	}, nil
}

// Upload OSS SDK 不接收 context，调用前检查是否已取消
func (d *OSSDriver) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.bucket.PutObject(key, bytes.NewReader(data), oss.ContentType(contentType))
}

func (d *OSSDriver) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	exists, err := d.bucket.IsObjectExist(key)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return d.bucket.DeleteObject(key)
}

func (d *OSSDriver) GetURL(key string) (string, error) {
	return d.baseURL + "/" + key, nil
}

func (d *OSSDriver) KeyFromURL(url string) (string, bool) {
	return trimURLKey(url, d.baseURL)
}
