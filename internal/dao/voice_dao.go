package dao

import (
	"context"

	"vocata/internal/model"

	"gorm.io/gorm"
)

type VoiceDao interface {
	Create(ctx context.Context, v *model.TtsVoice) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, provider string) ([]*model.TtsVoice, error)
}

type voiceDao struct {
	db *gorm.DB
}

func NewVoiceDao(db *gorm.DB) VoiceDao {
	return &voiceDao{db: db}
}

func (d *voiceDao) Create(ctx context.Context, v *model.TtsVoice) error {
	return d.db.WithContext(ctx).Create(v).Error
}

func (d *voiceDao) Delete(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Delete(&model.TtsVoice{}, "id = ?", id).Error
}

// List provider 为空时返回全部音色
func (d *voiceDao) List(ctx context.Context, provider string) ([]*model.TtsVoice, error) {
	var list []*model.TtsVoice
	db := d.db.WithContext(ctx).Model(&model.TtsVoice{})
	if provider != "" {
		db = db.Where("provider = ?", provider)
	}
	err := db.Order("created_at ASC").Find(&list).Error
	return list, err
}
