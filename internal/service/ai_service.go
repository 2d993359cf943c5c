package service

import (
	"context"
	"errors"
	"fmt"

	"vocata/internal/ai/dto"
	"vocata/internal/ai/selector"
	"vocata/internal/model"
	"vocata/internal/storage"

	"go.uber.org/zap"
)

var ErrProviderUnavailable = errors.New("provider is not available")

type AIService interface {
	// Providers 当前选中的 provider 及全部候选
	Providers() *model.ProvidersResponse
	// Synthesize 批量合成并上传音频
	Synthesize(ctx context.Context, req *model.SynthesizeRequest) (*model.SynthesizeResponse, error)
	Recognize(ctx context.Context, audio []byte, cfg dto.SttConfig) (*model.RecognizeResponse, error)
}

type aiService struct {
	holder       *selector.Holder
	storage      storage.Storage
	defaultVoice string
	logger       *zap.Logger
}

func NewAIService(holder *selector.Holder, store storage.Storage, defaultVoice string, logger *zap.Logger) AIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &aiService{holder: holder, storage: store, defaultVoice: defaultVoice, logger: logger.Named("ai")}
}

func (s *aiService) Providers() *model.ProvidersResponse {
	sel := s.holder.Load()
	reg := s.holder.Registry()

	resp := &model.ProvidersResponse{
		LLM: model.CapabilityProviders{Selected: sel.LLM.Name(), Reason: sel.LLMReason},
		STT: model.CapabilityProviders{Selected: sel.STT.Name(), Reason: sel.STTReason},
		TTS: model.CapabilityProviders{Selected: sel.TTS.Name(), Reason: sel.TTSReason},
	}
	for _, p := range reg.LLMs() {
		resp.LLM.Providers = append(resp.LLM.Providers, providerInfo(p, sel.LLM.Name()))
	}
	for _, c := range reg.STTs() {
		resp.STT.Providers = append(resp.STT.Providers, providerInfo(c, sel.STT.Name()))
	}
	for _, c := range reg.TTSs() {
		resp.TTS.Providers = append(resp.TTS.Providers, providerInfo(c, sel.TTS.Name()))
	}
	return resp
}

func providerInfo(c selector.Candidate, selected string) *model.ProviderInfo {
	return &model.ProviderInfo{Name: c.Name(), Available: c.Available(), Selected: c.Name() == selected}
}

func (s *aiService) Synthesize(ctx context.Context, req *model.SynthesizeRequest) (*model.SynthesizeResponse, error) {
	client := s.holder.Load().TTS
	if !client.Available() {
		return nil, ErrProviderUnavailable
	}

	cfg := dto.DefaultTtsConfig()
	cfg.VoiceID = s.defaultVoice
	if req.VoiceID != "" {
		cfg.VoiceID = req.VoiceID
	}
	if req.Speed > 0 {
		cfg.Speed = req.Speed
	}
	if req.Format != "" {
		cfg.AudioFormat = req.Format
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrInvalidRequest, err)
	}

	res, err := client.Synthesize(ctx, req.Text, cfg)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.Put(ctx, res.AudioData, storage.ContentTypeForFormat(res.AudioFormat))
	if err != nil {
		return nil, err
	}
	s.logger.Info("synthesized", zap.String("provider", client.Name()), zap.Int("bytes", len(res.AudioData)))
	return &model.SynthesizeResponse{
		AudioURL:        url,
		AudioFormat:     res.AudioFormat,
		SampleRate:      res.SampleRate,
		DurationSeconds: res.DurationSeconds,
		VoiceID:         res.VoiceID,
		Provider:        client.Name(),
	}, nil
}

func (s *aiService) Recognize(ctx context.Context, audio []byte, cfg dto.SttConfig) (*model.RecognizeResponse, error) {
	client := s.holder.Load().STT
	if !client.Available() {
		return nil, ErrProviderUnavailable
	}
	res, err := client.Recognize(ctx, audio, cfg)
	if err != nil {
		return nil, err
	}
	return &model.RecognizeResponse{Text: res.Text, Confidence: res.Confidence, Provider: client.Name()}, nil
}
