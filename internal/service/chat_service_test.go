package service

import (
	"context"
	"sync"
	"testing"

	"vocata/config"
	"vocata/internal/ai/dto"
	"vocata/internal/ai/llm"
	"vocata/internal/ai/pipeline"
	"vocata/internal/ai/selector"
	"vocata/internal/ai/stt"
	"vocata/internal/ai/tts"
	hisdao "vocata/internal/dao/history"
	"vocata/internal/model"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingLLM 记录最后一次请求
type capturingLLM struct {
	*llm.Mock
	mu   sync.Mutex
	last *dto.UnifiedChatRequest
}

func (c *capturingLLM) StreamChat(ctx context.Context, req *dto.UnifiedChatRequest) (*schema.StreamReader[*dto.UnifiedStreamChunk], error) {
	c.mu.Lock()
	c.last = req
	c.mu.Unlock()
	return c.Mock.StreamChat(ctx, req)
}

func (c *capturingLLM) lastRequest() *dto.UnifiedChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

type chatFixture struct {
	*testServices
	chat  ChatService
	llm   *capturingLLM
	store *memStore
}

func newChatFixture(t *testing.T, modelName string) *chatFixture {
	s := newTestServices(t)
	fake := &capturingLLM{Mock: llm.NewMock(llm.WithMockReply("你好。很高兴认识你！"))}
	src := staticSource{sel: &selector.Selection{LLM: fake, STT: stt.NewMock(), TTS: tts.NewMock()}}
	store := newMemStore()
	agg := pipeline.NewAggregator(src, store, 60, nil)
	cfg := config.AIConfig{
		LLM:          config.LLMConfig{Model: modelName},
		STT:          config.STTConfig{Language: "zh-CN"},
		TTS:          config.TTSConfig{Voice: "xiaoxiao"},
		HistoryLimit: 20,
	}
	chat := NewChatService(agg, s.history, s.character, NewPromptService(nil), cfg, nil)
	return &chatFixture{testServices: s, chat: chat, llm: fake, store: store}
}

func lastType(envs []*pipeline.Envelope) pipeline.EnvelopeType {
	if len(envs) == 0 {
		return ""
	}
	return envs[len(envs)-1].Type()
}

func TestStreamTextPersistsTurn(t *testing.T) {
	f := newChatFixture(t, "mock-chat")
	ctx := context.Background()
	c := f.publishedCharacter(t, 1, "小雨")
	conv, err := f.history.CreateConversation(ctx, 7, c, "")
	require.NoError(t, err)

	sr, err := f.chat.StreamText(ctx, 7, conv.ConvID, "今天过得怎么样")
	require.NoError(t, err)
	envs := drain(t, sr)
	require.Equal(t, pipeline.TypeComplete, lastType(envs))

	complete := envs[len(envs)-1].Payload.(pipeline.CompletePayload)
	assert.Equal(t, "你好。很高兴认识你！", complete.Text)
	assert.NotEmpty(t, complete.MessageID)

	msgs, err := f.history.RecentMessages(ctx, conv.ConvID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, model.SenderCharacter, msgs[0].SenderType)
	assert.Equal(t, model.SenderUser, msgs[1].SenderType)
	assert.Equal(t, "今天过得怎么样", msgs[1].TextContent)

	reply := msgs[2]
	assert.Equal(t, complete.MessageID, reply.MsgID)
	assert.Equal(t, model.SenderCharacter, reply.SenderType)
	assert.Equal(t, "你好。很高兴认识你！", reply.TextContent)
	assert.Equal(t, "mock-chat", reply.LLMModelID)
	assert.Equal(t, "xiaoyi", reply.TTSVoiceID)
	assert.NotEmpty(t, reply.AudioURL)
	assert.Contains(t, f.store.objects, reply.AudioURL)
	assert.Equal(t, "mock", reply.Metadata["llm_provider"])
	assert.Equal(t, "MockTTS", reply.Metadata["tts_provider"])
	assert.Contains(t, reply.Metadata, "processing_timestamp")

	req := f.llm.lastRequest()
	require.NotNil(t, req)
	assert.Contains(t, req.SystemPrompt, "住在山里的小雨")
	assert.Equal(t, "今天过得怎么样", req.UserMessage)
	// 当前用户消息不会重复出现在历史中
	require.Len(t, req.ContextMessages, 1)
	assert.Equal(t, dto.RoleAssistant, req.ContextMessages[0].Role)
	assert.Equal(t, 0.7, *req.ModelConfig.Temperature)

	got, err := f.history.GetConversation(ctx, 7, conv.ConvID)
	require.NoError(t, err)
	assert.Equal(t, "你好。很高兴认识你！", got.LastMessageSummary)

	updated, err := f.character.GetCharacter(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated.ChatCount)
}

func TestStreamTextTrimsHistoryToContextWindow(t *testing.T) {
	f := newChatFixture(t, "mock-chat")
	ctx := context.Background()
	window := 2
	temperature := 1.2
	c, err := f.character.CreateCharacter(ctx, 1, &model.CreateCharacterRequest{
		Name: "阿明", Description: "话少", Status: model.CharacterPublished,
		ContextWindow: &window, Temperature: &temperature,
	})
	require.NoError(t, err)
	conv, err := f.history.CreateConversation(ctx, 7, c, "")
	require.NoError(t, err)

	for _, text := range []string{"第一句", "第二句"} {
		envs := drain(t, mustStream(t, f.chat.StreamText(ctx, 7, conv.ConvID, text)))
		require.Equal(t, pipeline.TypeComplete, lastType(envs))
	}

	req := f.llm.lastRequest()
	require.Len(t, req.ContextMessages, 2)
	assert.Equal(t, dto.RoleUser, req.ContextMessages[0].Role)
	assert.Equal(t, "第一句", req.ContextMessages[0].Content)
	assert.Equal(t, dto.RoleAssistant, req.ContextMessages[1].Role)
	assert.Equal(t, 1.2, *req.ModelConfig.Temperature)
	assert.Equal(t, 2, *req.ModelConfig.ContextWindow)
}

func TestStreamTextUnsupportedModelUsesProviderDefault(t *testing.T) {
	f := newChatFixture(t, "gemini-2.0-flash")
	ctx := context.Background()
	c := f.publishedCharacter(t, 1, "小雨")
	conv, err := f.history.CreateConversation(ctx, 7, c, "")
	require.NoError(t, err)

	envs := drain(t, mustStream(t, f.chat.StreamText(ctx, 7, conv.ConvID, "你好")))
	require.Equal(t, pipeline.TypeComplete, lastType(envs))
	assert.Empty(t, f.llm.lastRequest().ModelConfig.ModelName)
}

func TestStreamAudioUsesTranscript(t *testing.T) {
	f := newChatFixture(t, "mock-chat")
	ctx := context.Background()
	c := f.publishedCharacter(t, 1, "小雨")
	conv, err := f.history.CreateConversation(ctx, 7, c, "")
	require.NoError(t, err)

	audio := schema.StreamReaderFromArray([][]byte{make([]byte, 320), make([]byte, 320), make([]byte, 320)})
	sr, err := f.chat.StreamAudio(ctx, 7, conv.ConvID, audio, dto.DefaultSttConfig())
	require.NoError(t, err)
	envs := drain(t, sr)
	require.Equal(t, pipeline.TypeComplete, lastType(envs))

	msgs, err := f.history.RecentMessages(ctx, conv.ConvID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	user := msgs[1]
	assert.Equal(t, "你好我想和你聊天关于人工智能的话题", user.TextContent)
	assert.Equal(t, "audio", user.Metadata["input"])
	assert.Equal(t, "MockSTT", msgs[2].Metadata["stt_provider"])
}

func TestStreamUnknownConversation(t *testing.T) {
	f := newChatFixture(t, "mock-chat")
	ctx := context.Background()

	_, err := f.chat.StreamText(ctx, 7, "missing", "你好")
	assert.ErrorIs(t, err, hisdao.ErrConversationNotFound)

	_, err = f.chat.StreamAudio(ctx, 7, "missing", schema.StreamReaderFromArray([][]byte{{1}}), dto.DefaultSttConfig())
	assert.ErrorIs(t, err, hisdao.ErrConversationNotFound)
}

func TestStreamTextDeletedCharacterUsesDefaultPersona(t *testing.T) {
	f := newChatFixture(t, "mock-chat")
	ctx := context.Background()
	c := f.publishedCharacter(t, 1, "小雨")
	conv, err := f.history.CreateConversation(ctx, 7, c, "")
	require.NoError(t, err)
	require.NoError(t, f.character.DeleteCharacter(ctx, 1, c.ID))

	envs := drain(t, mustStream(t, f.chat.StreamText(ctx, 7, conv.ConvID, "还在吗")))
	require.Equal(t, pipeline.TypeComplete, lastType(envs))
	assert.Equal(t, defaultAssistantPersona, f.llm.lastRequest().SystemPrompt)
}

func mustStream(t *testing.T, sr *schema.StreamReader[*pipeline.Envelope], err error) *schema.StreamReader[*pipeline.Envelope] {
	t.Helper()
	require.NoError(t, err)
	return sr
}

// swappingSource 首次 Load 返回 first，之后返回 next，模拟轮次中途的重新选择
type swappingSource struct {
	mu    sync.Mutex
	first *selector.Selection
	next  *selector.Selection
	loads int
}

func (s *swappingSource) Load() *selector.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loads == 1 {
		return s.first
	}
	return s.next
}

type otherModelsLLM struct{ *llm.Mock }

func (o otherModelsLLM) SupportedModels() []string { return []string{"other-model"} }

func TestStreamTextPicksModelForTurnProvider(t *testing.T) {
	s := newTestServices(t)
	fake := &capturingLLM{Mock: llm.NewMock(llm.WithMockReply("好的。"))}
	src := &swappingSource{
		first: &selector.Selection{LLM: fake, STT: stt.NewMock(), TTS: tts.NewMock()},
		next:  &selector.Selection{LLM: otherModelsLLM{Mock: llm.NewMock()}, STT: stt.NewMock(), TTS: tts.NewMock()},
	}
	cfg := config.AIConfig{LLM: config.LLMConfig{Model: "mock-chat"}, TTS: config.TTSConfig{Voice: "xiaoxiao"}, HistoryLimit: 20}
	chat := NewChatService(pipeline.NewAggregator(src, newMemStore(), 60, nil), s.history, s.character, NewPromptService(nil), cfg, nil)

	ctx := context.Background()
	c := s.publishedCharacter(t, 1, "小雨")
	conv, err := s.history.CreateConversation(ctx, 7, c, "")
	require.NoError(t, err)

	envs := drain(t, mustStream(t, chat.StreamText(ctx, 7, conv.ConvID, "你好")))
	require.Equal(t, pipeline.TypeComplete, lastType(envs))
	assert.Equal(t, "mock-chat", fake.lastRequest().ModelConfig.ModelName)
	assert.Equal(t, 1, src.loads)
}
