package service

import (
	"context"
	"fmt"
	"strings"

	"vocata/internal/dao"
	"vocata/internal/model"

	"github.com/google/uuid"
)

const (
	defaultCharacterTemperature   = 0.7
	defaultCharacterContextWindow = 10
	featuredLimit                 = 20
)

type CharacterService interface {
	CreateCharacter(ctx context.Context, creatorID uint, req *model.CreateCharacterRequest) (*model.Character, error)
	UpdateCharacter(ctx context.Context, creatorID uint, req *model.UpdateCharacterRequest) (*model.Character, error)
	DeleteCharacter(ctx context.Context, creatorID uint, id string) error
	// GetCharacter 私有或未发布的角色只有创建者能看到
	GetCharacter(ctx context.Context, userID uint, id string) (*model.Character, error)
	PagePublic(ctx context.Context, page, size int) ([]*model.Character, int64, error)
	PageMine(ctx context.Context, creatorID uint, page, size int) ([]*model.Character, int64, error)
	Search(ctx context.Context, keyword string, page, size int) ([]*model.Character, int64, error)
	Featured(ctx context.Context) ([]*model.Character, error)
	IncrementChatCount(ctx context.Context, id string) error
}

type characterService struct {
	dao dao.CharacterDao
}

func NewCharacterService(dao dao.CharacterDao) CharacterService {
	return &characterService{dao: dao}
}

func (s *characterService) CreateCharacter(ctx context.Context, creatorID uint, req *model.CreateCharacterRequest) (*model.Character, error) {
	c := &model.Character{
		ID:                uuid.NewString(),
		CreatorID:         creatorID,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		Greeting:          req.Greeting,
		Persona:           req.Persona,
		PersonalityTraits: req.PersonalityTraits,
		SpeakingStyle:     req.SpeakingStyle,
		ExampleDialogues:  req.ExampleDialogues,
		AvatarURL:         req.AvatarURL,
		VoiceID:           req.VoiceID,
		Tags:              normalizeTags(req.Tags),
		Language:          req.Language,
		Temperature:       defaultCharacterTemperature,
		ContextWindow:     defaultCharacterContextWindow,
		Status:            req.Status,
		IsPrivate:         req.IsPrivate,
	}
	if c.Language == "" {
		c.Language = "zh-CN"
	}
	if req.Temperature != nil {
		c.Temperature = *req.Temperature
	}
	if req.ContextWindow != nil && *req.ContextWindow > 0 {
		c.ContextWindow = *req.ContextWindow
	}
	if err := s.dao.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create character: %w", err)
	}
	return c, nil
}

func (s *characterService) UpdateCharacter(ctx context.Context, creatorID uint, req *model.UpdateCharacterRequest) (*model.Character, error) {
	c, err := s.dao.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if c.CreatorID != creatorID {
		return nil, dao.ErrCharacterNotFound
	}

	setIf(&c.Name, strings.TrimSpace(req.Name))
	setIf(&c.Description, req.Description)
	setIf(&c.Greeting, req.Greeting)
	setIf(&c.Persona, req.Persona)
	setIf(&c.PersonalityTraits, req.PersonalityTraits)
	setIf(&c.SpeakingStyle, req.SpeakingStyle)
	setIf(&c.ExampleDialogues, req.ExampleDialogues)
	setIf(&c.AvatarURL, req.AvatarURL)
	setIf(&c.VoiceID, req.VoiceID)
	setIf(&c.Tags, normalizeTags(req.Tags))
	setIf(&c.Language, req.Language)
	if req.Temperature != nil {
		c.Temperature = *req.Temperature
	}
	if req.ContextWindow != nil && *req.ContextWindow > 0 {
		c.ContextWindow = *req.ContextWindow
	}
	if req.Status != nil {
		c.Status = *req.Status
	}
	if req.IsPrivate != nil {
		c.IsPrivate = *req.IsPrivate
	}

	if err := s.dao.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *characterService) DeleteCharacter(ctx context.Context, creatorID uint, id string) error {
	return s.dao.Delete(ctx, creatorID, id)
}

func (s *characterService) GetCharacter(ctx context.Context, userID uint, id string) (*model.Character, error) {
	c, err := s.dao.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Visible(userID) {
		return nil, dao.ErrCharacterNotFound
	}
	return c, nil
}

func (s *characterService) PagePublic(ctx context.Context, page, size int) ([]*model.Character, int64, error) {
	return s.dao.PagePublic(ctx, page, size)
}

func (s *characterService) PageMine(ctx context.Context, creatorID uint, page, size int) ([]*model.Character, int64, error) {
	return s.dao.PageByCreator(ctx, creatorID, page, size)
}

func (s *characterService) Search(ctx context.Context, keyword string, page, size int) ([]*model.Character, int64, error) {
	return s.dao.Search(ctx, strings.TrimSpace(keyword), page, size)
}

func (s *characterService) Featured(ctx context.Context) ([]*model.Character, error) {
	return s.dao.Featured(ctx, featuredLimit)
}

func (s *characterService) IncrementChatCount(ctx context.Context, id string) error {
	return s.dao.IncrementChatCount(ctx, id)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// normalizeTags 去掉空白与重复标签，统一用英文逗号分隔
func normalizeTags(tags string) string {
	if tags == "" {
		return ""
	}
	parts := strings.FieldsFunc(tags, func(r rune) bool { return r == ',' || r == '，' })
	seen := make(map[string]struct{}, len(parts))
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, ",")
}
