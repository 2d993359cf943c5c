// Package dto holds the vendor-neutral request, chunk and audio types that every
// provider speaks.
package dto

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	ErrInvalidRequest     = errors.New("invalid chat request")
	ErrInvalidModelConfig = errors.New("invalid model config")
)

// Role 对话角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage 上下文中的一条消息
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ModelConfig 模型调用参数，全部可选，由 provider 决定默认值
type ModelConfig struct {
	ModelName     string   `json:"model_name,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	ContextWindow *int     `json:"context_window,omitempty"`
}

// Validate 校验取值范围
func (c *ModelConfig) Validate() error {
	if c == nil {
		return nil
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("%w: temperature %.2f out of [0,2]", ErrInvalidModelConfig, *c.Temperature)
	}
	if c.MaxTokens != nil && *c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive", ErrInvalidModelConfig)
	}
	if c.TopP != nil && (*c.TopP <= 0 || *c.TopP > 1) {
		return fmt.Errorf("%w: top_p %.2f out of (0,1]", ErrInvalidModelConfig, *c.TopP)
	}
	if c.ContextWindow != nil && *c.ContextWindow <= 0 {
		return fmt.Errorf("%w: context_window must be positive", ErrInvalidModelConfig)
	}
	return nil
}

func (c *ModelConfig) clone() *ModelConfig {
	if c == nil {
		return nil
	}
	out := &ModelConfig{ModelName: c.ModelName}
	out.Temperature = clonePtr(c.Temperature)
	out.MaxTokens = clonePtr(c.MaxTokens)
	out.TopP = clonePtr(c.TopP)
	out.ContextWindow = clonePtr(c.ContextWindow)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr 返回值的指针，便于构造可选参数
func Ptr[T any](v T) *T {
	return &v
}

// UnifiedChatRequest 统一的聊天请求。构造后只读，provider 不得修改。
type UnifiedChatRequest struct {
	SystemPrompt    string
	UserMessage     string
	ContextMessages []ChatMessage
	ModelConfig     *ModelConfig
	Metadata        map[string]string
}

// NewChatRequest 构造请求并拷贝调用方的切片与 map
func NewChatRequest(systemPrompt, userMessage string, history []ChatMessage, cfg *ModelConfig, metadata map[string]string) *UnifiedChatRequest {
	return &UnifiedChatRequest{
		SystemPrompt:    systemPrompt,
		UserMessage:     userMessage,
		ContextMessages: slices.Clone(history),
		ModelConfig:     cfg.clone(),
		Metadata:        maps.Clone(metadata),
	}
}

// Validate 在调用 provider 之前校验请求
func (r *UnifiedChatRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidRequest)
	}
	if r.UserMessage == "" {
		return fmt.Errorf("%w: user message is empty", ErrInvalidRequest)
	}
	for i, m := range r.ContextMessages {
		switch m.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return fmt.Errorf("%w: context message %d has unknown role %q", ErrInvalidRequest, i, m.Role)
		}
	}
	return r.ModelConfig.Validate()
}

// Messages 按时间顺序展开为 system -> 历史 -> 当前用户消息
func (r *UnifiedChatRequest) Messages() []ChatMessage {
	out := make([]ChatMessage, 0, len(r.ContextMessages)+2)
	if r.SystemPrompt != "" {
		out = append(out, ChatMessage{Role: RoleSystem, Content: r.SystemPrompt})
	}
	out = append(out, r.ContextMessages...)
	out = append(out, ChatMessage{Role: RoleUser, Content: r.UserMessage})
	return out
}

// ModelName 返回请求指定的模型，未指定时返回 fallback
func (r *UnifiedChatRequest) ModelName(fallback string) string {
	if r.ModelConfig != nil && r.ModelConfig.ModelName != "" {
		return r.ModelConfig.ModelName
	}
	return fallback
}
