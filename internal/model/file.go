package model

import "time"

// File 上传到对象存储的文件
type File struct {
	ID          string    `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	Name        string    `gorm:"not null" json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	URL         string    `gorm:"not null" json:"url"`
	Purpose     string    `gorm:"index" json:"purpose"` // avatar/image
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
