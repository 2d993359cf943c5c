package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatRequestCopiesInputs(t *testing.T) {
	history := []ChatMessage{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}}
	meta := map[string]string{"conv_id": "c1"}
	cfg := &ModelConfig{ModelName: "gpt-4o", Temperature: Ptr(0.5)}

	req := NewChatRequest("persona", "how are you", history, cfg, meta)

	history[0].Content = "mutated"
	meta["conv_id"] = "c2"
	*cfg.Temperature = 1.9

	assert.Equal(t, "hi", req.ContextMessages[0].Content)
	assert.Equal(t, "c1", req.Metadata["conv_id"])
	assert.Equal(t, 0.5, *req.ModelConfig.Temperature)
}

func TestMessagesOrder(t *testing.T) {
	req := NewChatRequest("sys", "now", []ChatMessage{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "second"},
	}, nil, nil)

	msgs := req.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, "second", msgs[2].Content)
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "now"}, msgs[3])

	noSys := NewChatRequest("", "only", nil, nil, nil)
	assert.Len(t, noSys.Messages(), 1)
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  *UnifiedChatRequest
		err  error
	}{
		{"ok", NewChatRequest("", "hi", nil, &ModelConfig{Temperature: Ptr(2.0), MaxTokens: Ptr(10)}, nil), nil},
		{"nil", nil, ErrInvalidRequest},
		{"empty user message", NewChatRequest("sys", "", nil, nil, nil), ErrInvalidRequest},
		{"bad role", NewChatRequest("", "hi", []ChatMessage{{Role: "tool", Content: "x"}}, nil, nil), ErrInvalidRequest},
		{"temperature high", NewChatRequest("", "hi", nil, &ModelConfig{Temperature: Ptr(2.1)}, nil), ErrInvalidModelConfig},
		{"temperature negative", NewChatRequest("", "hi", nil, &ModelConfig{Temperature: Ptr(-0.1)}, nil), ErrInvalidModelConfig},
		{"max tokens zero", NewChatRequest("", "hi", nil, &ModelConfig{MaxTokens: Ptr(0)}, nil), ErrInvalidModelConfig},
		{"top p zero", NewChatRequest("", "hi", nil, &ModelConfig{TopP: Ptr(0.0)}, nil), ErrInvalidModelConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "fallback", NewChatRequest("", "x", nil, nil, nil).ModelName("fallback"))
	assert.Equal(t, "gpt-4", NewChatRequest("", "x", nil, &ModelConfig{ModelName: "gpt-4"}, nil).ModelName("fallback"))
}

func TestSttResultValid(t *testing.T) {
	assert.False(t, (*SttResult)(nil).Valid())
	assert.False(t, (&SttResult{Text: "  "}).Valid())
	assert.False(t, (&SttResult{Text: "x", Metadata: map[string]any{MetadataError: "boom"}}).Valid())
	assert.True(t, (&SttResult{Text: "你好"}).Valid())
}

func TestTtsConfigValidate(t *testing.T) {
	cfg := DefaultTtsConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "zh-CN", cfg.Language)
	assert.Equal(t, "mp3", cfg.AudioFormat)
	assert.Equal(t, 24000, cfg.SampleRate)

	cfg.Speed = 2.5
	assert.Error(t, cfg.Validate())
	cfg = DefaultTtsConfig()
	cfg.Volume = 1.5
	assert.Error(t, cfg.Validate())
	cfg = DefaultTtsConfig()
	cfg.Pitch = 0.4
	assert.Error(t, cfg.Validate())
}
