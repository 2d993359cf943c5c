package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"vocata/config"
	"vocata/internal/ai/dto"
	"vocata/internal/ai/llm"
	"vocata/internal/ai/pipeline"
	"vocata/internal/dao"
	"vocata/internal/model"
	"vocata/internal/utils"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

type ChatService interface {
	// StreamText 文本输入的一轮对话
	StreamText(ctx context.Context, userID uint, convID, text string) (*schema.StreamReader[*pipeline.Envelope], error)
	// StreamAudio 语音输入的一轮对话，成功返回后 audio 由管线负责关闭
	StreamAudio(ctx context.Context, userID uint, convID string, audio *schema.StreamReader[[]byte], sttCfg dto.SttConfig) (*schema.StreamReader[*pipeline.Envelope], error)
}

type chatService struct {
	aggregator   *pipeline.Aggregator
	historySvc   HistoryService
	characterSvc CharacterService
	promptSvc    PromptService
	cfg          config.AIConfig
	logger       *zap.Logger
}

func NewChatService(aggregator *pipeline.Aggregator, historySvc HistoryService,
	characterSvc CharacterService, promptSvc PromptService, cfg config.AIConfig, logger *zap.Logger) ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &chatService{
		aggregator:   aggregator,
		historySvc:   historySvc,
		characterSvc: characterSvc,
		promptSvc:    promptSvc,
		cfg:          cfg,
		logger:       logger.Named("chat"),
	}
}

func (s *chatService) StreamText(ctx context.Context, userID uint, convID, text string) (*schema.StreamReader[*pipeline.Envelope], error) {
	turn, err := s.prepare(ctx, userID, convID, false)
	if err != nil {
		return nil, err
	}
	turn.Text = text
	return s.aggregator.Run(ctx, turn), nil
}

func (s *chatService) StreamAudio(ctx context.Context, userID uint, convID string, audio *schema.StreamReader[[]byte], sttCfg dto.SttConfig) (*schema.StreamReader[*pipeline.Envelope], error) {
	turn, err := s.prepare(ctx, userID, convID, true)
	if err != nil {
		audio.Close()
		return nil, err
	}
	if sttCfg.Language == "" {
		sttCfg.Language = s.cfg.STT.Language
	}
	turn.Audio = audio
	turn.SttConfig = sttCfg
	return s.aggregator.Run(ctx, turn), nil
}

// chatTurn 一轮对话在持久化回调之间共享的状态
type chatTurn struct {
	conv      *model.Conversation
	character *model.Character
	audioIn   bool
	userMsgID string
	modelName string
}

func (s *chatService) prepare(ctx context.Context, userID uint, convID string, audioIn bool) (*pipeline.Turn, error) {
	conv, err := s.historySvc.GetConversation(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	character, err := s.characterSvc.GetCharacter(ctx, userID, conv.CharacterID)
	if err != nil {
		if !errors.Is(err, dao.ErrCharacterNotFound) {
			return nil, fmt.Errorf("failed to load character: %w", err)
		}
		// 角色被删除或不再可见时以默认人设继续对话
		s.logger.Warn("character unavailable, using default persona", zap.String("conv_id", convID), zap.String("character_id", conv.CharacterID))
		character = nil
	}

	ct := &chatTurn{conv: conv, character: character, audioIn: audioIn}
	tts := dto.DefaultTtsConfig()
	tts.VoiceID = s.cfg.TTS.Voice
	if character != nil {
		if character.VoiceID != "" {
			tts.VoiceID = character.VoiceID
		}
		if character.Language != "" {
			tts.Language = character.Language
		}
	}

	return &pipeline.Turn{
		TtsConfig:    &tts,
		BuildRequest: func(userText string, provider llm.Provider) (*dto.UnifiedChatRequest, error) {
			return s.buildRequest(ctx, ct, userText, provider)
		},
		Hooks: pipeline.Hooks{
			OnTranscript: func(ctx context.Context, userText string) error { return s.saveUserMessage(ctx, ct, userText) },
			OnFinalize: func(ctx context.Context, res pipeline.Result) (string, error) {
				return s.saveAssistantMessage(ctx, ct, tts.VoiceID, res)
			},
		},
		Metadata: map[string]string{
			"conv_id":      conv.ConvID,
			"character_id": conv.CharacterID,
			"user_id":      strconv.FormatUint(uint64(userID), 10),
		},
	}, nil
}

// buildRequest 角色提示词加最近的历史消息，历史按角色的上下文窗口截断
func (s *chatService) buildRequest(ctx context.Context, ct *chatTurn, userText string, provider llm.Provider) (*dto.UnifiedChatRequest, error) {
	recent, err := s.historySvc.RecentMessages(ctx, ct.conv.ConvID, s.cfg.HistoryLimit+1)
	if err != nil {
		return nil, err
	}
	msgs := make([]*model.Message, 0, len(recent))
	for _, m := range recent {
		if m.MsgID != ct.userMsgID {
			msgs = append(msgs, m)
		}
	}

	temperature := defaultCharacterTemperature
	window := defaultCharacterContextWindow
	if ct.character != nil {
		temperature = ct.character.Temperature
		if ct.character.ContextWindow > 0 {
			window = ct.character.ContextWindow
		}
	}
	if len(msgs) > window {
		msgs = msgs[len(msgs)-window:]
	}

	ct.modelName = s.modelFor(provider)
	cfg := &dto.ModelConfig{
		ModelName:     ct.modelName,
		Temperature:   dto.Ptr(temperature),
		ContextWindow: dto.Ptr(window),
	}
	metadata := map[string]string{"conv_id": ct.conv.ConvID}
	prompt := s.promptSvc.BuildSystemPrompt(ctx, ct.character)
	return dto.NewChatRequest(prompt, userText, utils.MessageList2ChatHistory(msgs), cfg, metadata), nil
}

// modelFor 本轮 provider 不支持配置的模型时（如已退回其他 provider）使用其默认模型
func (s *chatService) modelFor(provider llm.Provider) string {
	if provider == nil || s.cfg.LLM.Model == "" {
		return s.cfg.LLM.Model
	}
	if models := provider.SupportedModels(); len(models) > 0 && !slices.Contains(models, s.cfg.LLM.Model) {
		return ""
	}
	return s.cfg.LLM.Model
}

func (s *chatService) saveUserMessage(ctx context.Context, ct *chatTurn, userText string) error {
	meta := model.JSONMap{"processing_timestamp": time.Now().UnixMilli()}
	if ct.audioIn {
		meta["input"] = "audio"
	}
	msg := &model.Message{
		ConvID:      ct.conv.ConvID,
		SenderType:  model.SenderUser,
		ContentType: model.ContentText,
		TextContent: userText,
		TokenCount:  dto.EstimateTokens(userText),
		Metadata:    meta,
	}
	if err := s.historySvc.SaveMessage(ctx, msg); err != nil {
		return err
	}
	ct.userMsgID = msg.MsgID
	return nil
}

func (s *chatService) saveAssistantMessage(ctx context.Context, ct *chatTurn, voiceID string, res pipeline.Result) (string, error) {
	meta := model.JSONMap{
		"processing_timestamp": time.Now().UnixMilli(),
		"llm_provider":         res.LLMProvider,
	}
	if res.STTProvider != "" {
		meta["stt_provider"] = res.STTProvider
	}
	if res.TTSProvider != "" {
		meta["tts_provider"] = res.TTSProvider
	}
	if res.Failed {
		meta["interrupted"] = true
	}
	tokens := dto.EstimateTokens(res.Text)
	if usage := usageMap(res.Usage); usage != nil {
		meta["token_usage"] = usage
		if out := res.Usage.OutputTokens(); out != nil {
			tokens = *out
		}
	}

	msg := &model.Message{
		ConvID:      ct.conv.ConvID,
		SenderType:  model.SenderCharacter,
		ContentType: model.ContentText,
		TextContent: res.Text,
		AudioURL:    res.AudioURL,
		LLMModelID:  ct.modelName,
		TTSVoiceID:  voiceID,
		TokenCount:  tokens,
		Metadata:    meta,
	}
	if err := s.historySvc.SaveMessage(ctx, msg); err != nil {
		return "", err
	}

	if err := s.historySvc.UpdateSummary(ctx, ct.conv.ConvID, res.Text); err != nil {
		s.logger.Warn("update conversation summary failed", zap.String("conv_id", ct.conv.ConvID), zap.Error(err))
	}
	if ct.character != nil && !res.Failed {
		if err := s.characterSvc.IncrementChatCount(ctx, ct.character.ID); err != nil {
			s.logger.Warn("increment chat count failed", zap.String("character_id", ct.character.ID), zap.Error(err))
		}
	}
	return msg.MsgID, nil
}

func usageMap(u *dto.TokenUsage) map[string]any {
	if u == nil {
		return nil
	}
	m := map[string]any{}
	if v := u.InputTokens(); v != nil {
		m["input_tokens"] = *v
	}
	if v := u.OutputTokens(); v != nil {
		m["output_tokens"] = *v
	}
	if v := u.TotalTokens(); v != nil {
		m["total_tokens"] = *v
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
