package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vocata/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) (*LocalDriver, *store) {
	t.Helper()
	d, err := NewLocalDriver(config.LocalConfig{BaseDir: t.TempDir(), URLPrefix: "static/"})
	require.NoError(t, err)
	s := &store{driver: d, now: func() time.Time { return time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC) }}
	return d, s
}

func TestLocalPutAndDelete(t *testing.T) {
	d, s := newLocalStore(t)
	ctx := context.Background()

	url, err := s.Put(ctx, []byte("audio"), "audio/mpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/static/2025/03/09/"))
	assert.True(t, strings.HasSuffix(url, ".mp3"))

	key, ok := d.KeyFromURL(url)
	require.True(t, ok)
	data, err := os.ReadFile(filepath.Join(d.BaseDir(), filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))

	deleted, err := s.Delete(ctx, url)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, url)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteForeignURL(t *testing.T) {
	_, s := newLocalStore(t)
	deleted, err := s.Delete(context.Background(), "https://cdn.example.com/a.mp3")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.Delete(context.Background(), "/static/../secret")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestNewDriverByType(t *testing.T) {
	d, err := NewDriver(&config.StorageConfig{Type: "local", Local: config.LocalConfig{BaseDir: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalDriver{}, d)

	md, err := NewDriver(&config.StorageConfig{Type: "minio", Minio: config.MinioConfig{Endpoint: "127.0.0.1:9000", Bucket: "vocata"}})
	require.NoError(t, err)
	u, _ := md.GetURL("a/b.mp3")
	assert.Equal(t, "http://127.0.0.1:9000/vocata/a/b.mp3", u)
	key, ok := md.KeyFromURL(u)
	assert.True(t, ok)
	assert.Equal(t, "a/b.mp3", key)

	od, err := NewDriver(&config.StorageConfig{Type: "oss", OSS: config.OSSConfig{Endpoint: "oss-cn-hangzhou.aliyuncs.com", Bucket: "vocata", AccessKeyID: "id", AccessKeySecret: "secret"}})
	require.NoError(t, err)
	u, _ = od.GetURL("a.mp3")
	assert.Equal(t, "https://vocata.oss-cn-hangzhou.aliyuncs.com/a.mp3", u)

	_, err = NewDriver(&config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestContentTypeForFormat(t *testing.T) {
	assert.Equal(t, "audio/mpeg", ContentTypeForFormat("MP3"))
	assert.Equal(t, "audio/pcm", ContentTypeForFormat("pcm"))
	assert.Equal(t, "application/octet-stream", ContentTypeForFormat("flac"))
	assert.Equal(t, ".mp3", extension("audio/mpeg; charset=binary"))
	assert.Equal(t, "", extension("application/x-unknown"))
}
