package model

import "time"

// TtsVoice 音色目录
type TtsVoice struct {
	ID              string    `gorm:"primaryKey;type:char(36)" json:"id"`
	ProviderVoiceID string    `gorm:"not null;index" json:"provider_voice_id"` // 厂商侧音色标识
	Name            string    `gorm:"not null" json:"name"`
	Provider        string    `gorm:"not null" json:"provider"`
	LanguageCode    string    `json:"language_code"`
	Gender          string    `json:"gender"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type CreateVoiceRequest struct {
	ProviderVoiceID string `json:"provider_voice_id" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Provider        string `json:"provider" binding:"required"`
	LanguageCode    string `json:"language_code"`
	Gender          string `json:"gender" binding:"omitempty,oneof=male female neutral"`
	Description     string `json:"description"`
}

// VoiceItem 音色列表项，Source 区分数据库记录和 provider 内置音色
type VoiceItem struct {
	ID              string `json:"id,omitempty"`
	ProviderVoiceID string `json:"provider_voice_id"`
	Name            string `json:"name"`
	Provider        string `json:"provider"`
	LanguageCode    string `json:"language_code,omitempty"`
	Source          string `json:"source"` // catalog/provider
}
