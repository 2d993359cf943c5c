package history

import (
	"context"
	"fmt"

	"vocata/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MsgDao interface {
	Create(ctx context.Context, msg *model.Message) error
	List(ctx context.Context, convID string, offset, limit int) ([]*model.Message, int64, error)
	Recent(ctx context.Context, convID string, limit int) ([]*model.Message, error)
}

type msgDao struct {
	db *gorm.DB
}

func NewMsgDao(db *gorm.DB) MsgDao {
	return &msgDao{db: db}
}

// Create 在同一事务内分配会话内递增的 order_seq
func (d *msgDao) Create(ctx context.Context, msg *model.Message) error {
	if len(msg.MsgID) == 0 {
		msg.MsgID = uuid.NewString()
	}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int
		if err := tx.Model(&model.Message{}).Where("conv_id = ?", msg.ConvID).
			Select("COALESCE(MAX(order_seq), 0)").Row().Scan(&maxSeq); err != nil {
			return err
		}
		msg.OrderSeq = maxSeq + 1
		return tx.Create(msg).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// List 分页获取历史消息
func (d *msgDao) List(ctx context.Context, convID string, offset, limit int) ([]*model.Message, int64, error) {
	var msgs []*model.Message
	var total int64
	db := d.db.WithContext(ctx).Model(&model.Message{}).Where("conv_id = ?", convID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}
	if err := db.Order("order_seq ASC").Offset(offset).Limit(limit).Find(&msgs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, total, nil
}

// Recent 最近 limit 条消息，按时间正序返回
func (d *msgDao) Recent(ctx context.Context, convID string, limit int) ([]*model.Message, error) {
	var msgs []*model.Message
	if err := d.db.WithContext(ctx).Where("conv_id = ?", convID).
		Order("order_seq DESC").Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
