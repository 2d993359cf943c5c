package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"vocata/internal/ai/dto"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

const defaultLLMTimeout = 60 * time.Second

// CompatibleConfig OpenAI 兼容接口的 provider 配置
type CompatibleConfig struct {
	Name         string
	Aliases      []string
	APIKey       string
	BaseURL      string
	DefaultModel string
	Models       map[string]int // 模型 -> 上下文长度
	Timeout      time.Duration
}

// OpenAICompatible 基于 eino-ext openai ChatModel 的 provider，
// OpenAI、Gemini、硅基流动、七牛均走这一实现。
type OpenAICompatible struct {
	catalog
	name    string
	aliases []string
	chat    *openai.ChatModel
	logger  *zap.Logger
}

func NewOpenAICompatible(ctx context.Context, cfg CompatibleConfig, logger *zap.Logger) (*OpenAICompatible, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultLLMTimeout
	}
	p := &OpenAICompatible{
		catalog: catalog{
			defaultModel:   cfg.DefaultModel,
			contextLengths: cfg.Models,
			fallbackLength: 8192,
		},
		name:    cfg.Name,
		aliases: cfg.Aliases,
		logger:  logger.Named("llm").With(zap.String("provider", cfg.Name)),
	}
	// 未配置 key 时不创建客户端，Available 返回 false
	if cfg.APIKey == "" {
		return p, nil
	}

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.DefaultModel,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s chat model: %w", cfg.Name, err)
	}
	p.chat = cm
	return p, nil
}

func (p *OpenAICompatible) Name() string      { return p.name }
func (p *OpenAICompatible) Aliases() []string { return p.aliases }
func (p *OpenAICompatible) Available() bool   { return p.chat != nil }

func (p *OpenAICompatible) StreamChat(ctx context.Context, req *dto.UnifiedChatRequest) (*schema.StreamReader[*dto.UnifiedStreamChunk], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := p.ValidateModelConfig(req.ModelConfig); err != nil {
		return nil, err
	}
	if !p.Available() {
		return nil, fmt.Errorf("%s is not configured", p.name)
	}

	sr, em := newChunkStream()
	go p.run(ctx, req, em)
	return sr, nil
}

func (p *OpenAICompatible) run(ctx context.Context, req *dto.UnifiedChatRequest, em *emitter) {
	defer em.close()

	model := p.model(req)
	upstream, err := p.chat.Stream(ctx, toEinoMessages(req.Messages()), p.callOptions(req, model)...)
	if err != nil {
		p.logger.Error("stream request failed", zap.String("model", model), zap.Error(err))
		em.fail(humanMessage(ctx, err))
		return
	}
	defer upstream.Close()

	var (
		finishReason string
		usage        *dto.TokenUsage
	)
	for {
		msg, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.logger.Error("stream receive failed", zap.String("model", model), zap.Error(err))
			em.fail(humanMessage(ctx, err))
			return
		}
		if msg.ResponseMeta != nil {
			if msg.ResponseMeta.FinishReason != "" {
				finishReason = msg.ResponseMeta.FinishReason
			}
			if u := msg.ResponseMeta.Usage; u != nil && (u.PromptTokens > 0 || u.CompletionTokens > 0) {
				usage = dto.NewTokenUsage(u.PromptTokens, u.CompletionTokens)
			}
		}
		if !em.content(msg.Content) {
			p.logger.Debug("consumer closed stream", zap.String("model", model))
			return
		}
	}

	if usage == nil {
		usage = &dto.TokenUsage{}
		usage.SetInputTokens(estimatePromptTokens(req))
	}
	em.done(finishReason, usage)
}

func (p *OpenAICompatible) callOptions(req *dto.UnifiedChatRequest, model string) []einomodel.Option {
	opts := []einomodel.Option{einomodel.WithModel(model)}
	cfg := req.ModelConfig
	if cfg == nil {
		return opts
	}
	if cfg.Temperature != nil {
		opts = append(opts, einomodel.WithTemperature(float32(*cfg.Temperature)))
	}
	if cfg.MaxTokens != nil {
		opts = append(opts, einomodel.WithMaxTokens(*cfg.MaxTokens))
	}
	if cfg.TopP != nil {
		opts = append(opts, einomodel.WithTopP(float32(*cfg.TopP)))
	}
	return opts
}

func toEinoMessages(msgs []dto.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &schema.Message{Role: schema.RoleType(m.Role), Content: m.Content})
	}
	return out
}

func estimatePromptTokens(req *dto.UnifiedChatRequest) int {
	n := 0
	for _, m := range req.Messages() {
		n += dto.EstimateTokens(m.Content)
	}
	return n
}

// 各厂商预置
var (
	openAIModels = map[string]int{
		"gpt-3.5-turbo":     4096,
		"gpt-3.5-turbo-16k": 16384,
		"gpt-4":             8192,
		"gpt-4-32k":         32768,
		"gpt-4-turbo":       128000,
		"gpt-4o":            128000,
		"gpt-4o-mini":       128000,
	}
	geminiModels = map[string]int{
		"gemini-1.5-flash": 1048576,
		"gemini-1.5-pro":   2097152,
		"gemini-2.0-flash": 1048576,
		"gemini-2.5-flash": 1048576,
	}
)

func OpenAIConfig(apiKey, baseURL, model string) CompatibleConfig {
	return CompatibleConfig{
		Name:         "OpenAI",
		APIKey:       apiKey,
		BaseURL:      orDefault(baseURL, "https://api.openai.com/v1"),
		DefaultModel: orDefault(model, "gpt-4o-mini"),
		Models:       withModel(openAIModels, model, 8192),
	}
}

func GeminiConfig(apiKey, baseURL, model string) CompatibleConfig {
	return CompatibleConfig{
		Name:         "Gemini",
		Aliases:      []string{"google"},
		APIKey:       apiKey,
		BaseURL:      orDefault(baseURL, "https://generativelanguage.googleapis.com/v1beta/openai/"),
		DefaultModel: orDefault(model, "gemini-2.0-flash"),
		Models:       withModel(geminiModels, model, 1048576),
	}
}

// SiliconFlowConfig 硅基流动托管的开源模型很多，不限制模型列表
func SiliconFlowConfig(apiKey, baseURL, model string) CompatibleConfig {
	return CompatibleConfig{
		Name:         "SiliconFlow AI",
		Aliases:      []string{"硅基流动"},
		APIKey:       apiKey,
		BaseURL:      orDefault(baseURL, "https://api.siliconflow.cn/v1"),
		DefaultModel: orDefault(model, "Qwen/Qwen2.5-7B-Instruct"),
	}
}

func QiniuConfig(apiKey, baseURL, model string) CompatibleConfig {
	return CompatibleConfig{
		Name:         "Qiniu AI",
		Aliases:      []string{"七牛"},
		APIKey:       apiKey,
		BaseURL:      orDefault(baseURL, "https://openai.qiniu.com/v1"),
		DefaultModel: orDefault(model, "x-ai/grok-4-fast"),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func withModel(base map[string]int, model string, length int) map[string]int {
	out := make(map[string]int, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	if _, ok := out[model]; model != "" && !ok {
		out[model] = length
	}
	return out
}
