package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"vocata/internal/ai/dto"

	"github.com/cloudwego/eino/schema"
	ollama "github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

var errConsumerGone = errors.New("consumer closed stream")

// Ollama 本地模型 provider
type Ollama struct {
	catalog
	client *ollama.Client
	logger *zap.Logger
}

// NewOllama baseURL 为空时 provider 不可用
func NewOllama(baseURL, model string, httpClient *http.Client, logger *zap.Logger) (*Ollama, error) {
	p := &Ollama{
		catalog: catalog{defaultModel: orDefault(model, "qwen2.5:7b"), fallbackLength: 8192},
		logger:  logger.Named("llm").With(zap.String("provider", "Ollama")),
	}
	if baseURL == "" {
		return p, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultLLMTimeout}
	}
	p.client = ollama.NewClient(u, httpClient)
	return p, nil
}

func (p *Ollama) Name() string    { return "Ollama" }
func (p *Ollama) Available() bool { return p.client != nil }

func (p *Ollama) StreamChat(ctx context.Context, req *dto.UnifiedChatRequest) (*schema.StreamReader[*dto.UnifiedStreamChunk], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := p.ValidateModelConfig(req.ModelConfig); err != nil {
		return nil, err
	}
	if !p.Available() {
		return nil, errors.New("ollama is not configured")
	}

	sr, em := newChunkStream()
	go p.run(ctx, req, em)
	return sr, nil
}

func (p *Ollama) run(ctx context.Context, req *dto.UnifiedChatRequest, em *emitter) {
	defer em.close()

	model := p.model(req)
	stream := true
	chatReq := &ollama.ChatRequest{
		Model:    model,
		Messages: toOllamaMessages(req.Messages()),
		Stream:   &stream,
		Options:  ollamaOptions(req.ModelConfig),
	}

	var (
		finishReason string
		usage        *dto.TokenUsage
	)
	err := p.client.Chat(ctx, chatReq, func(resp ollama.ChatResponse) error {
		if !em.content(resp.Message.Content) {
			return errConsumerGone
		}
		if resp.Done {
			finishReason = resp.DoneReason
			usage = dto.NewTokenUsage(resp.Metrics.PromptEvalCount, resp.Metrics.EvalCount)
		}
		return nil
	})
	if errors.Is(err, errConsumerGone) {
		p.logger.Debug("consumer closed stream", zap.String("model", model))
		return
	}
	if err != nil {
		p.logger.Error("chat request failed", zap.String("model", model), zap.Error(err))
		em.fail(humanMessage(ctx, err))
		return
	}
	em.done(finishReason, usage)
}

func toOllamaMessages(msgs []dto.ChatMessage) []ollama.Message {
	out := make([]ollama.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ollama.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func ollamaOptions(cfg *dto.ModelConfig) map[string]interface{} {
	opts := map[string]interface{}{}
	if cfg == nil {
		return opts
	}
	if cfg.Temperature != nil {
		opts["temperature"] = *cfg.Temperature
	}
	if cfg.MaxTokens != nil {
		opts["num_predict"] = *cfg.MaxTokens
	}
	if cfg.TopP != nil {
		opts["top_p"] = *cfg.TopP
	}
	if cfg.ContextWindow != nil {
		opts["num_ctx"] = *cfg.ContextWindow
	}
	return opts
}
