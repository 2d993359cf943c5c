package model

import "time"

// UserFavorite 用户收藏的角色
type UserFavorite struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex:idx_user_character" json:"user_id"`
	CharacterID string    `gorm:"uniqueIndex:idx_user_character;type:char(36)" json:"character_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type FavoriteRequest struct {
	CharacterID string `json:"character_id" binding:"required"`
}
