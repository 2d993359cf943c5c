package dao

import (
	"context"
	"errors"

	"vocata/internal/model"

	"gorm.io/gorm"
)

// FileDao 定义了文件记录的操作接口
type FileDao interface {
	Create(ctx context.Context, file *model.File) error
	GetByID(ctx context.Context, userID uint, id string) (*model.File, error)
	Delete(ctx context.Context, userID uint, id string) error
	Page(ctx context.Context, userID uint, purpose string, page, size int) ([]*model.File, int64, error)
}

// fileDao 实现了FileDao接口
type fileDao struct {
	db *gorm.DB
}

// NewFileDao 创建并返回一个新的FileDao实例
func NewFileDao(db *gorm.DB) FileDao {
	return &fileDao{db: db}
}

// Create 创建一个新的文件记录
func (fd *fileDao) Create(ctx context.Context, file *model.File) error {
	if fd.db == nil {
		return errors.New("数据库未初始化")
	}
	return fd.db.WithContext(ctx).Create(file).Error
}

// GetByID 获取属于该用户的文件，不存在时返回 nil
func (fd *fileDao) GetByID(ctx context.Context, userID uint, id string) (*model.File, error) {
	var file model.File
	err := fd.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// Delete 根据文件ID删除文件记录
func (fd *fileDao) Delete(ctx context.Context, userID uint, id string) error {
	return fd.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.File{}).Error
}

// Page 分页列出文件，purpose 为空时不过滤
func (fd *fileDao) Page(ctx context.Context, userID uint, purpose string, page, size int) ([]*model.File, int64, error) {
	var files []*model.File
	var total int64
	query := fd.db.WithContext(ctx).Model(&model.File{}).Where("user_id = ?", userID)
	if purpose != "" {
		query = query.Where("purpose = ?", purpose)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&files).Error
	return files, total, err
}
