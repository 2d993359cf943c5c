package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  driver: sqlite
  path: ./test.db
ai:
  llm:
    provider: openai
    model: gpt-4o
vendors:
  openai:
    api_key: sk-test
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "openai", cfg.AI.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.AI.LLM.Model)
	assert.Equal(t, "sk-test", cfg.Vendors.OpenAI.APIKey)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "/static", cfg.Storage.Local.URLPrefix)
	assert.Equal(t, "xunfei", cfg.AI.STT.Provider)
	assert.Equal(t, "volcan", cfg.AI.TTS.Provider)
	assert.Equal(t, 0.7, cfg.AI.LLM.Temperature)
	assert.Equal(t, 20, cfg.AI.HistoryLimit)
	assert.Equal(t, 60, cfg.AI.TTS.SegmentMaxRunes)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOnChangeNotifiesListeners(t *testing.T) {
	var got *AppConfig
	OnChange(func(c *AppConfig) { got = c })

	next := &AppConfig{Server: ServerConfig{Port: "9090"}}
	notify(next)

	require.NotNil(t, got)
	assert.Equal(t, "9090", got.Server.Port)
}
