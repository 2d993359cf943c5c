package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"vocata/internal/ai/dto"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOllamaStream(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, sonic.Unmarshal(body, &req))
		gotModel, _ = req["model"].(string)

		w.Header().Set("Content-Type", "application/x-ndjson")
		lines := []string{
			`{"model":"qwen","message":{"role":"assistant","content":"你好"},"done":false}`,
			`{"model":"qwen","message":{"role":"assistant","content":"呀"},"done":false}`,
			`{"model":"qwen","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":3}`,
		}
		for _, l := range lines {
			_, _ = w.Write([]byte(l + "\n"))
			w.(http.Flusher).Flush()
		}
	}))
	defer srv.Close()

	p, err := NewOllama(srv.URL, "qwen", srv.Client(), zap.NewNop())
	require.NoError(t, err)
	require.True(t, p.Available())

	sr, err := p.StreamChat(context.Background(), dto.NewChatRequest("sys", "hi", nil, nil, nil))
	require.NoError(t, err)
	chunks := drain(t, sr)

	assertWellFormed(t, chunks)
	assert.Equal(t, "qwen", gotModel)
	last := chunks[len(chunks)-1]
	assert.Equal(t, dto.ChunkDone, last.Type)
	assert.Equal(t, "你好呀", last.AccumulatedContent)
	assert.Equal(t, "stop", last.FinishReason)
	require.NotNil(t, last.TokenUsage.TotalTokens())
	assert.Equal(t, 15, *last.TokenUsage.TotalTokens())
}

func TestOllamaFailureIsHumanReadable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"CUDA out of memory at layer 17"}`))
	}))
	defer srv.Close()

	p, err := NewOllama(srv.URL, "qwen", srv.Client(), zap.NewNop())
	require.NoError(t, err)

	sr, err := p.StreamChat(context.Background(), dto.NewChatRequest("", "hi", nil, nil, nil))
	require.NoError(t, err)
	chunks := drain(t, sr)

	assertWellFormed(t, chunks)
	last := chunks[len(chunks)-1]
	assert.Equal(t, dto.ChunkError, last.Type)
	assert.Equal(t, MsgProviderFailed, last.Content)
	assert.NotContains(t, last.Content, "CUDA")
}

func TestOllamaUnavailableWithoutBaseURL(t *testing.T) {
	p, err := NewOllama("", "", nil, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.Available())
	assert.Equal(t, "Ollama", p.Name())
}
