package dao

import (
	"context"

	"vocata/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteDao interface {
	Add(ctx context.Context, userID uint, characterID string) error
	Remove(ctx context.Context, userID uint, characterID string) error
	Exists(ctx context.Context, userID uint, characterID string) (bool, error)
	PageCharacters(ctx context.Context, userID uint, page, size int) ([]*model.Character, int64, error)
}

type favoriteDao struct {
	db *gorm.DB
}

func NewFavoriteDao(db *gorm.DB) FavoriteDao {
	return &favoriteDao{db: db}
}

// Add 重复收藏不报错
func (d *favoriteDao) Add(ctx context.Context, userID uint, characterID string) error {
	fav := &model.UserFavorite{UserID: userID, CharacterID: characterID}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fav).Error
}

func (d *favoriteDao) Remove(ctx context.Context, userID uint, characterID string) error {
	return d.db.WithContext(ctx).
		Where("user_id = ? AND character_id = ?", userID, characterID).
		Delete(&model.UserFavorite{}).Error
}

func (d *favoriteDao) Exists(ctx context.Context, userID uint, characterID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.UserFavorite{}).
		Where("user_id = ? AND character_id = ?", userID, characterID).Count(&count).Error
	return count > 0, err
}

// PageCharacters 按收藏时间倒序返回收藏的角色
func (d *favoriteDao) PageCharacters(ctx context.Context, userID uint, page, size int) ([]*model.Character, int64, error) {
	var list []*model.Character
	var total int64

	db := d.db.WithContext(ctx).Model(&model.Character{}).
		Joins("JOIN user_favorites ON user_favorites.character_id = characters.id").
		Where("user_favorites.user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("user_favorites.created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&list).Error
	return list, total, err
}
