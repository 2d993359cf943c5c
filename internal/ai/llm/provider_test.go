package llm

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"vocata/internal/ai/dto"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, sr *schema.StreamReader[*dto.UnifiedStreamChunk]) []*dto.UnifiedStreamChunk {
	t.Helper()
	defer sr.Close()
	var out []*dto.UnifiedStreamChunk
	for {
		c, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, c)
	}
}

func assertWellFormed(t *testing.T, chunks []*dto.UnifiedStreamChunk) {
	t.Helper()
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex, "chunk index must increase by one")
		if i < len(chunks)-1 {
			assert.False(t, c.IsFinal, "only the last chunk may be final")
		}
	}
	assert.True(t, chunks[len(chunks)-1].IsFinal)
}

func TestMockStreamIsWellFormed(t *testing.T) {
	p := NewMock(WithMockReply("hello there general kenobi"))
	req := dto.NewChatRequest("persona", "hi", nil, nil, nil)

	sr, err := p.StreamChat(context.Background(), req)
	require.NoError(t, err)
	chunks := drain(t, sr)

	assertWellFormed(t, chunks)
	last := chunks[len(chunks)-1]
	assert.Equal(t, dto.ChunkDone, last.Type)
	assert.Equal(t, "hello there general kenobi", last.AccumulatedContent)
	require.NotNil(t, last.TokenUsage)
	require.NotNil(t, last.TokenUsage.TotalTokens())
	assert.Equal(t, *last.TokenUsage.InputTokens()+*last.TokenUsage.OutputTokens(), *last.TokenUsage.TotalTokens())
}

func TestChatEqualsFinalStreamChunk(t *testing.T) {
	p := NewMock()
	req := dto.NewChatRequest("", "你好", nil, nil, nil)

	sr, err := p.StreamChat(context.Background(), req)
	require.NoError(t, err)
	chunks := drain(t, sr)
	streamed := chunks[len(chunks)-1]

	final, err := Chat(context.Background(), p, req)
	require.NoError(t, err)

	assert.Equal(t, streamed.Type, final.Type)
	assert.Equal(t, streamed.ChunkIndex, final.ChunkIndex)
	assert.Equal(t, streamed.AccumulatedContent, final.AccumulatedContent)
	assert.Equal(t, streamed.FinishReason, final.FinishReason)
	assert.True(t, final.IsFinal)
}

func TestStreamChatRejectsInvalidRequest(t *testing.T) {
	p := NewMock()

	_, err := p.StreamChat(context.Background(), dto.NewChatRequest("", "", nil, nil, nil))
	assert.ErrorIs(t, err, dto.ErrInvalidRequest)

	_, err = p.StreamChat(context.Background(), dto.NewChatRequest("", "x", nil, &dto.ModelConfig{Temperature: dto.Ptr(3.0)}, nil))
	assert.ErrorIs(t, err, dto.ErrInvalidModelConfig)

	_, err = p.StreamChat(context.Background(), dto.NewChatRequest("", "x", nil, &dto.ModelConfig{ModelName: "gpt-4"}, nil))
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestMockCancellationEndsWithSingleTerminal(t *testing.T) {
	p := NewMock(WithMockReply("a b c d e f g h"), WithMockDelay(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	sr, err := p.StreamChat(ctx, dto.NewChatRequest("", "x", nil, nil, nil))
	require.NoError(t, err)

	first, err := sr.Recv()
	require.NoError(t, err)
	assert.Equal(t, 0, first.ChunkIndex)
	cancel()

	rest := drain(t, sr)
	all := append([]*dto.UnifiedStreamChunk{first}, rest...)
	assertWellFormed(t, all)
	assert.Equal(t, dto.ChunkError, all[len(all)-1].Type)
	assert.Equal(t, MsgInterrupted, all[len(all)-1].Content)
}

type failingProvider struct{ Mock }

func (f *failingProvider) StreamChat(ctx context.Context, req *dto.UnifiedChatRequest) (*schema.StreamReader[*dto.UnifiedStreamChunk], error) {
	sr, em := newChunkStream()
	go func() {
		defer em.close()
		em.content("partial")
		em.fail(MsgProviderFailed)
	}()
	return sr, nil
}

func TestChatReturnsProviderErrorOnErrorChunk(t *testing.T) {
	p := &failingProvider{Mock: *NewMock()}
	final, err := Chat(context.Background(), p, dto.NewChatRequest("", "x", nil, nil, nil))

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, MsgProviderFailed, perr.Message)
	require.NotNil(t, final)
	assert.Equal(t, dto.ChunkError, final.Type)
	assert.Equal(t, 1, final.ChunkIndex)
}

func TestCatalog(t *testing.T) {
	c := catalog{defaultModel: "gpt-4", contextLengths: openAIModels, fallbackLength: 100}
	assert.Equal(t, 8192, c.MaxContextLength())
	assert.Contains(t, c.SupportedModels(), "gpt-4o")
	assert.NoError(t, c.ValidateModelConfig(nil))
	assert.NoError(t, c.ValidateModelConfig(&dto.ModelConfig{ModelName: "gpt-4o", MaxTokens: dto.Ptr(100)}))
	assert.ErrorIs(t, c.ValidateModelConfig(&dto.ModelConfig{ModelName: "claude"}), ErrUnsupportedModel)
	assert.ErrorIs(t, c.ValidateModelConfig(&dto.ModelConfig{MaxTokens: dto.Ptr(-1)}), dto.ErrInvalidModelConfig)

	open := catalog{defaultModel: "Qwen/Qwen2.5-7B-Instruct", fallbackLength: 8192}
	assert.Equal(t, []string{"Qwen/Qwen2.5-7B-Instruct"}, open.SupportedModels())
	assert.NoError(t, open.ValidateModelConfig(&dto.ModelConfig{ModelName: "deepseek-ai/DeepSeek-V3"}))
	assert.Equal(t, 8192, open.MaxContextLength())
}
