package service

import (
	"context"
	"fmt"

	"vocata/internal/ai/pipeline"
	"vocata/internal/dao"
	"vocata/internal/model"

	"github.com/google/uuid"
)

const (
	VoiceSourceCatalog  = "catalog"
	VoiceSourceProvider = "provider"
)

type VoiceService interface {
	CreateVoice(ctx context.Context, req *model.CreateVoiceRequest) (*model.TtsVoice, error)
	DeleteVoice(ctx context.Context, id string) error
	// ListVoices 音色目录加当前 TTS provider 的内置音色，按 provider_voice_id 去重
	ListVoices(ctx context.Context, provider string) ([]*model.VoiceItem, error)
}

type voiceService struct {
	dao       dao.VoiceDao
	providers pipeline.SelectionSource
}

func NewVoiceService(dao dao.VoiceDao, providers pipeline.SelectionSource) VoiceService {
	return &voiceService{dao: dao, providers: providers}
}

func (s *voiceService) CreateVoice(ctx context.Context, req *model.CreateVoiceRequest) (*model.TtsVoice, error) {
	v := &model.TtsVoice{
		ID:              uuid.NewString(),
		ProviderVoiceID: req.ProviderVoiceID,
		Name:            req.Name,
		Provider:        req.Provider,
		LanguageCode:    req.LanguageCode,
		Gender:          req.Gender,
		Description:     req.Description,
	}
	if err := s.dao.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create voice: %w", err)
	}
	return v, nil
}

func (s *voiceService) DeleteVoice(ctx context.Context, id string) error {
	return s.dao.Delete(ctx, id)
}

func (s *voiceService) ListVoices(ctx context.Context, provider string) ([]*model.VoiceItem, error) {
	rows, err := s.dao.List(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}

	items := make([]*model.VoiceItem, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, v := range rows {
		seen[v.ProviderVoiceID] = struct{}{}
		items = append(items, &model.VoiceItem{
			ID:              v.ID,
			ProviderVoiceID: v.ProviderVoiceID,
			Name:            v.Name,
			Provider:        v.Provider,
			LanguageCode:    v.LanguageCode,
			Source:          VoiceSourceCatalog,
		})
	}

	client := s.providers.Load().TTS
	if provider != "" && provider != client.Name() {
		return items, nil
	}
	for _, id := range client.SupportedVoices() {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		items = append(items, &model.VoiceItem{
			ProviderVoiceID: id,
			Name:            id,
			Provider:        client.Name(),
			Source:          VoiceSourceProvider,
		})
	}
	return items, nil
}
