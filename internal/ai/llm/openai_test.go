package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"vocata/internal/ai/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openAISSE(w http.ResponseWriter, deltas []string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for i, d := range deltas {
		fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":%q},\"finish_reason\":null}]}\n\n", d)
		if i == len(deltas)-1 {
			fmt.Fprint(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		}
		w.(http.Flusher).Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func TestOpenAICompatibleStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		openAISSE(w, []string{"Hello", " world"})
	}))
	defer srv.Close()

	p, err := NewOpenAICompatible(context.Background(), OpenAIConfig("sk-test", srv.URL, "gpt-4o"), zap.NewNop())
	require.NoError(t, err)
	require.True(t, p.Available())

	sr, err := p.StreamChat(context.Background(), dto.NewChatRequest("be brief", "hi", nil, &dto.ModelConfig{Temperature: dto.Ptr(0.3)}, nil))
	require.NoError(t, err)
	chunks := drain(t, sr)

	assertWellFormed(t, chunks)
	last := chunks[len(chunks)-1]
	assert.Equal(t, dto.ChunkDone, last.Type)
	assert.Equal(t, "Hello world", last.AccumulatedContent)
	require.NotNil(t, last.TokenUsage)
	assert.NotNil(t, last.TokenUsage.OutputTokens())
}

func TestOpenAICompatibleVendorErrorIsHidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached for org-secret","type":"requests"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAICompatible(context.Background(), OpenAIConfig("sk-test", srv.URL, "gpt-4o"), zap.NewNop())
	require.NoError(t, err)

	final, err := Chat(context.Background(), p, dto.NewChatRequest("", "hi", nil, nil, nil))
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "OpenAI", perr.Provider)
	assert.Equal(t, dto.ChunkError, final.Type)
	assert.NotContains(t, final.Content, "org-secret")
}

func TestOpenAICompatibleWithoutKeyIsUnavailable(t *testing.T) {
	p, err := NewOpenAICompatible(context.Background(), GeminiConfig("", "", ""), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.Available())
	assert.Equal(t, "Gemini", p.Name())
	assert.Equal(t, "gemini-2.0-flash", p.defaultModel)

	_, err = p.StreamChat(context.Background(), dto.NewChatRequest("", "hi", nil, nil, nil))
	assert.Error(t, err)
}

func TestVendorPresets(t *testing.T) {
	sf := SiliconFlowConfig("k", "", "")
	assert.Equal(t, "SiliconFlow AI", sf.Name)
	assert.Contains(t, sf.Aliases, "硅基流动")

	q := QiniuConfig("k", "", "")
	assert.Equal(t, "Qiniu AI", q.Name)
	assert.Equal(t, "x-ai/grok-4-fast", q.DefaultModel)

	o := OpenAIConfig("k", "", "my-finetune")
	assert.Equal(t, 8192, o.Models["my-finetune"])
	assert.Equal(t, 128000, o.Models["gpt-4o"])
}
