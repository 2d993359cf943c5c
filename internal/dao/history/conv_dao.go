/*
 * This file contains modified code from the eino-history project.
 * Original source: https://github.com/HildaM/eino-history
 * Licensed under the Apache License, Version 2.0.
 * Modifications are made by RaspberryCola.
 */

package history

import (
	"context"
	"errors"
	"fmt"

	"vocata/internal/model"

	"gorm.io/gorm"
)

var ErrConversationNotFound = errors.New("conversation not found")

type ConvDao interface {
	Create(ctx context.Context, conv *model.Conversation) error
	Delete(ctx context.Context, userID uint, convID string) error
	GetByID(ctx context.Context, userID uint, convID string) (*model.Conversation, error)
	Page(ctx context.Context, userID uint, page, size int) ([]*model.Conversation, int64, error)
	PageByCharacter(ctx context.Context, userID uint, characterID string, page, size int) ([]*model.Conversation, int64, error)
	Rename(ctx context.Context, userID uint, convID, title string) error
	UpdateSummary(ctx context.Context, convID, summary string) error
	Archive(ctx context.Context, userID uint, convID string) error
	UnArchive(ctx context.Context, userID uint, convID string) error
	Pin(ctx context.Context, userID uint, convID string) error
	UnPin(ctx context.Context, userID uint, convID string) error
}

type convDao struct {
	db *gorm.DB
}

// NewConvDao 创建一个ConvDao
func NewConvDao(db *gorm.DB) ConvDao {
	return &convDao{db: db}
}

// Create 创建一个会话
func (d *convDao) Create(ctx context.Context, conv *model.Conversation) error {
	err := d.db.WithContext(ctx).Create(conv).Error
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// Delete 删除会话及其全部消息
func (d *convDao) Delete(ctx context.Context, userID uint, convID string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("conv_id = ? AND user_id = ?", convID, userID).Delete(&model.Conversation{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete conversation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConversationNotFound
		}
		if err := tx.Where("conv_id = ?", convID).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		return nil
	})
}

// GetByID 获取属于该用户的会话
func (d *convDao) GetByID(ctx context.Context, userID uint, convID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := d.db.WithContext(ctx).Where("conv_id = ? AND user_id = ?", convID, userID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// Page 分页获取会话，置顶在前
func (d *convDao) Page(ctx context.Context, userID uint, page, size int) ([]*model.Conversation, int64, error) {
	db := d.db.WithContext(ctx).Model(&model.Conversation{}).Where("user_id = ?", userID)
	return d.page(db, page, size)
}

// PageByCharacter 按角色分页获取会话
func (d *convDao) PageByCharacter(ctx context.Context, userID uint, characterID string, page, size int) ([]*model.Conversation, int64, error) {
	db := d.db.WithContext(ctx).Model(&model.Conversation{}).Where("user_id = ? AND character_id = ?", userID, characterID)
	return d.page(db, page, size)
}

func (d *convDao) page(db *gorm.DB, page, size int) ([]*model.Conversation, int64, error) {
	var convs []*model.Conversation
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	err := db.Order("is_pinned DESC, updated_at DESC").Offset((page - 1) * size).Limit(size).Find(&convs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to page conversations: %w", err)
	}
	return convs, total, nil
}

func (d *convDao) Rename(ctx context.Context, userID uint, convID, title string) error {
	return d.update(ctx, userID, convID, "title", title)
}

// UpdateSummary 更新最后一条消息摘要，同时刷新 updated_at
func (d *convDao) UpdateSummary(ctx context.Context, convID, summary string) error {
	err := d.db.WithContext(ctx).Model(&model.Conversation{}).Where("conv_id = ?", convID).
		Update("last_message_summary", summary).Error
	if err != nil {
		return fmt.Errorf("failed to update conversation summary: %w", err)
	}
	return nil
}

// Archive 归档一个会话
func (d *convDao) Archive(ctx context.Context, userID uint, convID string) error {
	return d.update(ctx, userID, convID, "is_archived", true)
}

// UnArchive 取消归档一个会话
func (d *convDao) UnArchive(ctx context.Context, userID uint, convID string) error {
	return d.update(ctx, userID, convID, "is_archived", false)
}

// Pin 置顶一个会话
func (d *convDao) Pin(ctx context.Context, userID uint, convID string) error {
	return d.update(ctx, userID, convID, "is_pinned", true)
}

// UnPin 取消置顶一个会话
func (d *convDao) UnPin(ctx context.Context, userID uint, convID string) error {
	return d.update(ctx, userID, convID, "is_pinned", false)
}

// update 先校验归属，值未变化时 MySQL 的 RowsAffected 为 0，不能用来判断是否存在
func (d *convDao) update(ctx context.Context, userID uint, convID, column string, value any) error {
	if _, err := d.GetByID(ctx, userID, convID); err != nil {
		return err
	}
	err := d.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("conv_id = ? AND user_id = ?", convID, userID).Update(column, value).Error
	if err != nil {
		return fmt.Errorf("failed to update conversation %s: %w", column, err)
	}
	return nil
}
