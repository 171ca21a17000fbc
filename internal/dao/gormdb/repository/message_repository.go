package repository

import (
	"context"

	"channel_chat_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create 创建消息
func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return wrapDBErrorf(err, "创建消息 channel_id=%s", message.ChannelID)
	}
	return nil
}

// FindLatestByChannel 按创建时间倒序查找频道最新消息
// 创建时间相同的消息以 id 倒序作为稳定次序
func (r *messageRepository) FindLatestByChannel(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询消息 channel_id=%s", channelID)
	}
	return messages, nil
}
