package ai

import (
	"context"
	"testing"

	"vocata/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildRegistryWithoutCredentials(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.AI.LLM.Provider = "gemini"
	cfg.AI.STT.Provider = "xunfei"
	cfg.AI.TTS.Provider = "volcan"

	reg, err := BuildRegistry(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, reg.LLMs(), 6)
	assert.Len(t, reg.STTs(), 2)
	assert.Len(t, reg.TTSs(), 2)

	for _, p := range reg.LLMs()[:5] {
		assert.False(t, p.Available(), p.Name())
	}
}

func TestSetupSelectsMocksWhenUnconfigured(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.AI.LLM.Provider = "gemini"
	cfg.AI.STT.Provider = "xunfei"
	cfg.AI.TTS.Provider = "volcan"

	holder, err := Setup(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	sel := holder.Load()
	assert.Equal(t, "mock", sel.LLM.Name())
	assert.Equal(t, "MockSTT", sel.STT.Name())
	assert.Equal(t, "MockTTS", sel.TTS.Name())
}

func TestSetupPrefersConfiguredVendor(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.AI.LLM.Provider = "openai"
	cfg.AI.STT.Provider = "xunfei"
	cfg.AI.TTS.Provider = "volcan"
	cfg.Vendors.OpenAI.APIKey = "sk-test"
	cfg.Vendors.OpenAI.BaseURL = "http://127.0.0.1:1/v1"
	cfg.Vendors.Volcan.AppID = "app"
	cfg.Vendors.Volcan.Token = "token"

	holder, err := Setup(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	sel := holder.Load()
	assert.Equal(t, "OpenAI", sel.LLM.Name())
	assert.Equal(t, "火山引擎TTS", sel.TTS.Name())
}

func TestReloadPicksUpNewCredentials(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.AI.LLM.Provider = "openai"
	cfg.AI.STT.Provider = "xunfei"
	cfg.AI.TTS.Provider = "volcan"

	holder, err := Setup(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, "mock", holder.Load().LLM.Name())

	next := *cfg
	next.Vendors.OpenAI.APIKey = "sk-rotated"
	next.Vendors.OpenAI.BaseURL = "http://127.0.0.1:1/v1"
	require.NoError(t, reload(context.Background(), holder, &next, zap.NewNop()))

	sel := holder.Load()
	assert.Equal(t, "OpenAI", sel.LLM.Name())
	assert.True(t, sel.LLM.Available())
	assert.True(t, holder.Registry().LLMs()[1].Available())
}
