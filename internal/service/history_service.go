package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	hisdao "vocata/internal/dao/history"
	"vocata/internal/model"
	"vocata/internal/utils"

	"github.com/google/uuid"
)

const summaryMaxRunes = 50

type HistoryService interface {
	// CreateConversation 创建会话，角色有开场白时写入第一条角色消息
	CreateConversation(ctx context.Context, userID uint, character *model.Character, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, userID uint, convID string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, userID uint, convID string) error
	RenameConversation(ctx context.Context, userID uint, convID, title string) error
	ArchiveConversation(ctx context.Context, userID uint, convID string) error
	UnArchiveConversation(ctx context.Context, userID uint, convID string) error
	PinConversation(ctx context.Context, userID uint, convID string) error
	UnPinConversation(ctx context.Context, userID uint, convID string) error
	ListConversations(ctx context.Context, userID uint, page, size int) ([]*model.Conversation, int64, error)
	ListConversationsByCharacter(ctx context.Context, userID uint, characterID string, page, size int) ([]*model.Conversation, int64, error)

	SaveMessage(ctx context.Context, msg *model.Message) error
	// ListMessages 按时间正序分页
	ListMessages(ctx context.Context, userID uint, convID string, page, size int) ([]*model.Message, int64, error)
	// RecentMessages 最近 limit 条消息，按时间正序
	RecentMessages(ctx context.Context, convID string, limit int) ([]*model.Message, error)
	UpdateSummary(ctx context.Context, convID, text string) error
}

type history struct {
	convDao hisdao.ConvDao
	msgDao  hisdao.MsgDao
}

// NewHistoryService 创建历史记录服务
func NewHistoryService(convDao hisdao.ConvDao, msgDao hisdao.MsgDao) HistoryService {
	return &history{
		convDao: convDao,
		msgDao:  msgDao,
	}
}

// CreateConversation 创建会话
func (s *history) CreateConversation(ctx context.Context, userID uint, character *model.Character, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "与" + orDefault(character.Name, defaultCharacterName) + "的对话"
	}
	conv := &model.Conversation{
		ConvID:      uuid.NewString(),
		UserID:      userID,
		CharacterID: character.ID,
		Title:       title,
	}
	greeting := strings.TrimSpace(character.Greeting)
	if greeting != "" {
		conv.LastMessageSummary = utils.Truncate(greeting, summaryMaxRunes)
	}
	if err := s.convDao.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	if greeting != "" {
		err := s.msgDao.Create(ctx, &model.Message{
			ConvID:      conv.ConvID,
			SenderType:  model.SenderCharacter,
			ContentType: model.ContentText,
			TextContent: greeting,
			TTSVoiceID:  character.VoiceID,
			Metadata:    model.JSONMap{"greeting": true, "processing_timestamp": time.Now().UnixMilli()},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to save greeting: %w", err)
		}
	}
	return conv, nil
}

// GetConversation 获取会话
func (s *history) GetConversation(ctx context.Context, userID uint, convID string) (*model.Conversation, error) {
	return s.convDao.GetByID(ctx, userID, convID)
}

// DeleteConversation 删除会话及消息
func (s *history) DeleteConversation(ctx context.Context, userID uint, convID string) error {
	return s.convDao.Delete(ctx, userID, convID)
}

func (s *history) RenameConversation(ctx context.Context, userID uint, convID, title string) error {
	return s.convDao.Rename(ctx, userID, convID, strings.TrimSpace(title))
}

// ArchiveConversation 归档会话
func (s *history) ArchiveConversation(ctx context.Context, userID uint, convID string) error {
	return s.convDao.Archive(ctx, userID, convID)
}

// UnArchiveConversation 取消归档会话
func (s *history) UnArchiveConversation(ctx context.Context, userID uint, convID string) error {
	return s.convDao.UnArchive(ctx, userID, convID)
}

// PinConversation 置顶会话
func (s *history) PinConversation(ctx context.Context, userID uint, convID string) error {
	return s.convDao.Pin(ctx, userID, convID)
}

// UnPinConversation 取消置顶会话
func (s *history) UnPinConversation(ctx context.Context, userID uint, convID string) error {
	return s.convDao.UnPin(ctx, userID, convID)
}

// ListConversations 获取对话列表
func (s *history) ListConversations(ctx context.Context, userID uint, page, size int) ([]*model.Conversation, int64, error) {
	return s.convDao.Page(ctx, userID, page, size)
}

// ListConversationsByCharacter 按角色获取对话列表
func (s *history) ListConversationsByCharacter(ctx context.Context, userID uint, characterID string, page, size int) ([]*model.Conversation, int64, error) {
	return s.convDao.PageByCharacter(ctx, userID, characterID, page, size)
}

// SaveMessage 保存消息
func (s *history) SaveMessage(ctx context.Context, msg *model.Message) error {
	if err := s.msgDao.Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (s *history) ListMessages(ctx context.Context, userID uint, convID string, page, size int) ([]*model.Message, int64, error) {
	if _, err := s.convDao.GetByID(ctx, userID, convID); err != nil {
		return nil, 0, err
	}
	return s.msgDao.List(ctx, convID, (page-1)*size, size)
}

func (s *history) RecentMessages(ctx context.Context, convID string, limit int) ([]*model.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.msgDao.Recent(ctx, convID, limit)
}

// UpdateSummary 用最新一条消息更新会话摘要
func (s *history) UpdateSummary(ctx context.Context, convID, text string) error {
	return s.convDao.UpdateSummary(ctx, convID, utils.Truncate(text, summaryMaxRunes))
}
