package dao

import (
	"context"
	"errors"

	"vocata/internal/model"

	"gorm.io/gorm"
)

var ErrCharacterNotFound = errors.New("character not found or no permission")

type CharacterDao interface {
	Create(ctx context.Context, c *model.Character) error
	Update(ctx context.Context, c *model.Character) error
	Delete(ctx context.Context, creatorID uint, id string) error
	GetByID(ctx context.Context, id string) (*model.Character, error)
	PagePublic(ctx context.Context, page, size int) ([]*model.Character, int64, error)
	PageByCreator(ctx context.Context, creatorID uint, page, size int) ([]*model.Character, int64, error)
	Search(ctx context.Context, keyword string, page, size int) ([]*model.Character, int64, error)
	Featured(ctx context.Context, limit int) ([]*model.Character, error)
	IncrementChatCount(ctx context.Context, id string) error
}

type characterDao struct {
	db *gorm.DB
}

func NewCharacterDao(db *gorm.DB) CharacterDao {
	return &characterDao{db: db}
}

func (d *characterDao) Create(ctx context.Context, c *model.Character) error {
	return d.db.WithContext(ctx).Create(c).Error
}

func (d *characterDao) Update(ctx context.Context, c *model.Character) error {
	// 只允许创建者修改
	var count int64
	if err := d.db.WithContext(ctx).Model(&model.Character{}).Where("id = ? AND creator_id = ?", c.ID, c.CreatorID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrCharacterNotFound
	}

	return d.db.WithContext(ctx).Model(c).
		Select("Name", "Description", "Greeting", "Persona", "PersonalityTraits", "SpeakingStyle",
			"ExampleDialogues", "AvatarURL", "VoiceID", "Tags", "Language", "Temperature",
			"ContextWindow", "Status", "IsPrivate", "UpdatedAt").
		Updates(c).Error
}

func (d *characterDao) Delete(ctx context.Context, creatorID uint, id string) error {
	result := d.db.WithContext(ctx).Where("id = ? AND creator_id = ?", id, creatorID).Delete(&model.Character{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

func (d *characterDao) GetByID(ctx context.Context, id string) (*model.Character, error) {
	var c model.Character
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (d *characterDao) PagePublic(ctx context.Context, page, size int) ([]*model.Character, int64, error) {
	db := d.public(ctx).Order("chat_count DESC, created_at DESC")
	return d.page(db, page, size)
}

func (d *characterDao) PageByCreator(ctx context.Context, creatorID uint, page, size int) ([]*model.Character, int64, error) {
	db := d.db.WithContext(ctx).Model(&model.Character{}).Where("creator_id = ?", creatorID).Order("updated_at DESC")
	return d.page(db, page, size)
}

// Search 按名称或标签模糊匹配公开角色
func (d *characterDao) Search(ctx context.Context, keyword string, page, size int) ([]*model.Character, int64, error) {
	like := "%" + keyword + "%"
	db := d.public(ctx).Where("name LIKE ? OR tags LIKE ?", like, like).Order("chat_count DESC")
	return d.page(db, page, size)
}

func (d *characterDao) Featured(ctx context.Context, limit int) ([]*model.Character, error) {
	var list []*model.Character
	err := d.public(ctx).Where("is_featured = ?", true).Order("chat_count DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (d *characterDao) IncrementChatCount(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Model(&model.Character{}).Where("id = ?", id).
		UpdateColumn("chat_count", gorm.Expr("chat_count + ?", 1)).Error
}

func (d *characterDao) public(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx).Model(&model.Character{}).
		Where("status = ? AND is_private = ?", model.CharacterPublished, false)
}

func (d *characterDao) page(db *gorm.DB, page, size int) ([]*model.Character, int64, error) {
	var list []*model.Character
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	err := db.Offset((page - 1) * size).Limit(size).Find(&list).Error
	return list, count, err
}
