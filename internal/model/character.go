package model

import "time"

// 角色状态
const (
	CharacterDraft     = 0
	CharacterPublished = 1
	CharacterArchived  = 2
)

// Character AI 角色
type Character struct {
	ID                string    `gorm:"primaryKey;type:char(36)" json:"id"`
	CreatorID         uint      `gorm:"index" json:"creator_id"`
	Name              string    `gorm:"not null;index" json:"name"`
	Description       string    `gorm:"type:text" json:"description"`
	Greeting          string    `gorm:"type:text" json:"greeting"`
	Persona           string    `gorm:"type:text" json:"persona"`
	PersonalityTraits string    `gorm:"type:text" json:"personality_traits"`
	SpeakingStyle     string    `gorm:"type:text" json:"speaking_style"`
	ExampleDialogues  string    `gorm:"type:text" json:"example_dialogues"`
	AvatarURL         string    `json:"avatar_url"`
	VoiceID           string    `json:"voice_id"`
	Tags              string    `json:"tags"` // 逗号分隔
	Language          string    `gorm:"default:zh-CN" json:"language"`
	Temperature       float64   `gorm:"default:0.7" json:"temperature"`
	ContextWindow     int       `gorm:"default:10" json:"context_window"` // 携带的历史消息条数
	Status            int       `gorm:"default:0;index" json:"status"`
	IsPrivate         bool      `gorm:"default:false" json:"is_private"`
	IsFeatured        bool      `gorm:"default:false;index" json:"is_featured"`
	ChatCount         int64     `gorm:"default:0" json:"chat_count"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Visible 已发布的公开角色对所有人可见，其余仅创建者可见
func (c *Character) Visible(userID uint) bool {
	if c.CreatorID == userID {
		return true
	}
	return c.Status == CharacterPublished && !c.IsPrivate
}

// CreateCharacterRequest 创建角色请求
type CreateCharacterRequest struct {
	Name              string   `json:"name" binding:"required,max=64"`
	Description       string   `json:"description" binding:"required"`
	Greeting          string   `json:"greeting"`
	Persona           string   `json:"persona"`
	PersonalityTraits string   `json:"personality_traits"`
	SpeakingStyle     string   `json:"speaking_style"`
	ExampleDialogues  string   `json:"example_dialogues"`
	AvatarURL         string   `json:"avatar_url"`
	VoiceID           string   `json:"voice_id"`
	Tags              string   `json:"tags"`
	Language          string   `json:"language"`
	Temperature       *float64 `json:"temperature" binding:"omitempty,gte=0,lte=2"`
	ContextWindow     *int     `json:"context_window" binding:"omitempty,gte=0,lte=100"`
	Status            int      `json:"status" binding:"oneof=0 1 2"`
	IsPrivate         bool     `json:"is_private"`
}

// UpdateCharacterRequest 更新角色请求，空字段保持不变
type UpdateCharacterRequest struct {
	ID                string   `json:"id" binding:"required"`
	Name              string   `json:"name" binding:"omitempty,max=64"`
	Description       string   `json:"description"`
	Greeting          string   `json:"greeting"`
	Persona           string   `json:"persona"`
	PersonalityTraits string   `json:"personality_traits"`
	SpeakingStyle     string   `json:"speaking_style"`
	ExampleDialogues  string   `json:"example_dialogues"`
	AvatarURL         string   `json:"avatar_url"`
	VoiceID           string   `json:"voice_id"`
	Tags              string   `json:"tags"`
	Language          string   `json:"language"`
	Temperature       *float64 `json:"temperature" binding:"omitempty,gte=0,lte=2"`
	ContextWindow     *int     `json:"context_window" binding:"omitempty,gte=0,lte=100"`
	Status            *int     `json:"status" binding:"omitempty,oneof=0 1 2"`
	IsPrivate         *bool    `json:"is_private"`
}

type PageRequest struct {
	Page int `form:"page,default=1"`
	Size int `form:"size,default=10"`
}

type SearchCharacterRequest struct {
	Keyword string `form:"keyword" binding:"required"`
	Page    int    `form:"page,default=1"`
	Size    int    `form:"size,default=10"`
}
