package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"vocata/config"
)

// LocalDriver 本地目录存储，由 gin 静态路由对外提供访问
type LocalDriver struct {
	baseDir   string
	urlPrefix string
}

func NewLocalDriver(cfg config.LocalConfig) (*LocalDriver, error) {
	if cfg.BaseDir == "" {
		return nil, errors.New("local storage base_dir is empty")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	prefix := cfg.URLPrefix
	if prefix == "" {
		prefix = "/static"
	}
	return &LocalDriver{baseDir: cfg.BaseDir, urlPrefix: "/" + strings.Trim(prefix, "/")}, nil
}

func (d *LocalDriver) BaseDir() string   { return d.baseDir }
func (d *LocalDriver) URLPrefix() string { return d.urlPrefix }

func (d *LocalDriver) Upload(_ context.Context, key string, data []byte, _ string) error {
	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (d *LocalDriver) Delete(_ context.Context, key string) error {
	err := os.Remove(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (d *LocalDriver) GetURL(key string) (string, error) {
	return d.urlPrefix + "/" + key, nil
}

func (d *LocalDriver) KeyFromURL(url string) (string, bool) {
	return trimURLKey(url, d.urlPrefix)
}

func (d *LocalDriver) path(key string) string {
	return filepath.Join(d.baseDir, filepath.FromSlash(key))
}
