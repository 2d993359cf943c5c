// Package ai 根据配置构建各能力的 provider 并完成选择
package ai

import (
	"context"
	"fmt"
	"time"

	"vocata/config"
	"vocata/internal/ai/llm"
	"vocata/internal/ai/selector"
	"vocata/internal/ai/stt"
	"vocata/internal/ai/tts"

	"go.uber.org/zap"
)

// BuildRegistry 按配置注册所有 provider，未配置凭证的 provider 也会注册但不可用，
// mock 始终最后注册
func BuildRegistry(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*selector.Registry, error) {
	reg := selector.NewRegistry()
	v := cfg.Vendors
	timeout := time.Duration(cfg.AI.LLM.TimeoutSeconds) * time.Second

	compatible := []llm.CompatibleConfig{
		llm.GeminiConfig(v.Gemini.APIKey, v.Gemini.BaseURL, v.Gemini.Model),
		llm.OpenAIConfig(v.OpenAI.APIKey, v.OpenAI.BaseURL, v.OpenAI.Model),
		llm.SiliconFlowConfig(v.SiliconFlow.APIKey, v.SiliconFlow.BaseURL, v.SiliconFlow.Model),
		llm.QiniuConfig(v.Qiniu.APIKey, v.Qiniu.BaseURL, v.Qiniu.Model),
	}
	for _, c := range compatible {
		c.Timeout = timeout
		p, err := llm.NewOpenAICompatible(ctx, c, logger)
		if err != nil {
			return nil, err
		}
		reg.RegisterLLM(p)
	}

	ol, err := llm.NewOllama(v.Ollama.BaseURL, v.Ollama.Model, nil, logger)
	if err != nil {
		return nil, err
	}
	reg.RegisterLLM(ol, llm.NewMock())

	reg.RegisterSTT(
		stt.NewXunfei(stt.XunfeiConfig{
			AppID:     v.Xunfei.AppID,
			APIKey:    v.Xunfei.APIKey,
			APISecret: v.Xunfei.APISecret,
			Host:      v.Xunfei.Host,
			Path:      v.Xunfei.Path,
		}, logger),
		stt.NewMock(),
	)

	reg.RegisterTTS(
		tts.NewVolcan(tts.VolcanConfig{
			AppID:   v.Volcan.AppID,
			Token:   v.Volcan.Token,
			Cluster: v.Volcan.Cluster,
			Host:    v.Volcan.Host,
			Voice:   v.Volcan.Voice,
		}, logger),
		tts.NewMock(),
	)
	return reg, nil
}

// Setup 构建 provider 并完成首次选择，配置热更新时重建 provider 并重新选择
func Setup(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*selector.Holder, error) {
	reg, err := BuildRegistry(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}
	holder, err := selector.NewHolder(reg, cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to select providers: %w", err)
	}
	config.OnChange(func(next *config.AppConfig) {
		_ = reload(ctx, holder, next, logger)
	})
	return holder, nil
}

// reload 用新配置重建全部 provider，使变更后的凭证生效，失败时保留当前 provider
func reload(ctx context.Context, holder *selector.Holder, cfg *config.AppConfig, logger *zap.Logger) error {
	reg, err := BuildRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Error("rebuild provider registry failed, keeping previous providers", zap.Error(err))
		return err
	}
	return holder.Replace(reg, cfg.AI)
}
