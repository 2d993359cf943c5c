// Package llm defines the text generation capability and its vendor adapters.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"

	"vocata/internal/ai/dto"

	"github.com/cloudwego/eino/schema"
)

// 面向用户的错误提示，不包含厂商细节
const (
	MsgProviderFailed  = "AI服务响应失败，请稍后重试"
	MsgInterrupted     = "AI回复中断"
	MsgProviderTimeout = "AI服务响应超时，请稍后重试"
	MsgUnavailable     = "AI服务暂不可用，请稍后重试"
)

var ErrUnsupportedModel = errors.New("unsupported model")

// Provider 文本生成能力。实现必须是无状态的，可被并发调用。
type Provider interface {
	Name() string
	Available() bool
	// StreamChat 返回惰性、有限、不可重放的分片流，最后一个分片 IsFinal=true。
	// error 只用于请求校验失败，厂商调用失败以 ERROR 分片出现在流中。
	StreamChat(ctx context.Context, req *dto.UnifiedChatRequest) (*schema.StreamReader[*dto.UnifiedStreamChunk], error)
	MaxContextLength() int
	SupportedModels() []string
	EstimateTokens(text string) int
	ValidateModelConfig(cfg *dto.ModelConfig) error
}

// ProviderError 流以 ERROR 分片结束时由 Chat 返回
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Chat 消费整条流，丢弃非终止分片，返回终止分片
func Chat(ctx context.Context, p Provider, req *dto.UnifiedChatRequest) (*dto.UnifiedStreamChunk, error) {
	sr, err := p.StreamChat(ctx, req)
	if err != nil {
		return nil, err
	}
	defer sr.Close()

	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return nil, &ProviderError{Provider: p.Name(), Message: MsgInterrupted}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to receive chunk: %w", err)
		}
		if !chunk.IsFinal {
			continue
		}
		if chunk.Type == dto.ChunkError {
			return chunk, &ProviderError{Provider: p.Name(), Message: chunk.Content}
		}
		return chunk, nil
	}
}

// catalog 模型列表及上下文长度，供各 provider 复用同步方法
type catalog struct {
	defaultModel   string
	contextLengths map[string]int
	fallbackLength int
}

func (c catalog) MaxContextLength() int {
	if n, ok := c.contextLengths[c.defaultModel]; ok {
		return n
	}
	return c.fallbackLength
}

func (c catalog) SupportedModels() []string {
	if len(c.contextLengths) == 0 && c.defaultModel != "" {
		return []string{c.defaultModel}
	}
	models := make([]string, 0, len(c.contextLengths))
	for m := range c.contextLengths {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

func (c catalog) EstimateTokens(text string) int {
	return dto.EstimateTokens(text)
}

// ValidateModelConfig 模型需在支持列表中（列表为空时不限制），温度 [0,2]，maxTokens > 0
func (c catalog) ValidateModelConfig(cfg *dto.ModelConfig) error {
	if cfg == nil {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ModelName != "" && len(c.contextLengths) > 0 && !slices.Contains(c.SupportedModels(), cfg.ModelName) {
		return fmt.Errorf("%w: %s", ErrUnsupportedModel, cfg.ModelName)
	}
	return nil
}

func (c catalog) model(req *dto.UnifiedChatRequest) string {
	return req.ModelName(c.defaultModel)
}

// emitter 把增量文本写成分片流，并保证恰好一个终止分片
type emitter struct {
	seq  *dto.ChunkSequencer
	w    *schema.StreamWriter[*dto.UnifiedStreamChunk]
	gone bool
}

func newChunkStream() (*schema.StreamReader[*dto.UnifiedStreamChunk], *emitter) {
	sr, sw := schema.Pipe[*dto.UnifiedStreamChunk](16)
	return sr, &emitter{seq: dto.NewChunkSequencer(), w: sw}
}

// content 返回 false 表示消费方已关闭，生产方应停止
func (e *emitter) content(delta string) bool {
	if e.gone || delta == "" {
		return !e.gone
	}
	c, err := e.seq.Content(delta)
	if err != nil {
		return false
	}
	return e.send(c)
}

func (e *emitter) done(reason string, usage *dto.TokenUsage) {
	if usage == nil {
		usage = &dto.TokenUsage{}
	}
	if usage.OutputTokens() == nil {
		usage.SetOutputTokens(dto.EstimateTokens(e.seq.Accumulated()))
	}
	if c, err := e.seq.Done(reason, usage); err == nil {
		e.send(c)
	}
}

func (e *emitter) fail(message string) {
	if c, err := e.seq.Error(message); err == nil {
		e.send(c)
	}
}

func (e *emitter) accumulated() string { return e.seq.Accumulated() }

func (e *emitter) send(c *dto.UnifiedStreamChunk) bool {
	if e.gone {
		return false
	}
	if closed := e.w.Send(c, nil); closed {
		e.gone = true
	}
	return !e.gone
}

// close 未结束时补一个 ERROR 终止分片
func (e *emitter) close() {
	if !e.seq.Finished() {
		e.fail(MsgInterrupted)
	}
	e.w.Close()
}

func humanMessage(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return MsgProviderTimeout
	}
	return MsgProviderFailed
}
