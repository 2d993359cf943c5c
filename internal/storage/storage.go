// Package storage 对象存储，支持本地目录、MinIO 和阿里云 OSS
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"vocata/config"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("object not found")

// Driver 存储驱动，key 为相对路径
type Driver interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	GetURL(key string) (string, error)
	// KeyFromURL 反解 GetURL 生成的地址，不属于本驱动的地址返回 false
	KeyFromURL(url string) (string, bool)
}

// Storage 按内容类型生成 key 并上传，返回可访问的 URL
type Storage interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) (bool, error)
}

// NewDriver 根据配置创建存储驱动
func NewDriver(cfg *config.StorageConfig) (Driver, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocalDriver(cfg.Local)
	case "minio":
		return NewMinioDriver(cfg.Minio)
	case "oss":
		return NewOSSDriver(cfg.OSS)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

type store struct {
	driver Driver
	now    func() time.Time
}

// New 创建 Storage
func New(cfg *config.StorageConfig) (Storage, error) {
	driver, err := NewDriver(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithDriver(driver), nil
}

func NewWithDriver(driver Driver) Storage {
	return &store{driver: driver, now: time.Now}
}

func (s *store) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	key := path.Join(s.now().Format("2006/01/02"), uuid.NewString()+extension(contentType))
	if err := s.driver.Upload(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return s.driver.GetURL(key)
}

func (s *store) Delete(ctx context.Context, url string) (bool, error) {
	key, ok := s.driver.KeyFromURL(url)
	if !ok {
		return false, nil
	}
	if err := s.driver.Delete(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete object: %w", err)
	}
	return true, nil
}

var extensions = map[string]string{
	"audio/mpeg": ".mp3",
	"audio/mp3":  ".mp3",
	"audio/wav":  ".wav",
	"audio/wave": ".wav",
	"audio/pcm":  ".pcm",
	"audio/ogg":  ".ogg",
	"audio/webm": ".webm",
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"text/plain": ".txt",
}

func extension(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return extensions[ct]
}

// ContentTypeForFormat 音频格式对应的 MIME 类型
func ContentTypeForFormat(format string) string {
	switch strings.ToLower(format) {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/pcm"
	case "ogg", "ogg_opus":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

func trimURLKey(url, prefix string) (string, bool) {
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
