package repository

import (
	"context"

	"channel_chat_server/internal/model"

	"gorm.io/gorm"
)

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository 创建频道 Repository
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

// FindByID 按 ID 查找频道
func (r *channelRepository) FindByID(ctx context.Context, id string) (*model.Channel, error) {
	var channel model.Channel
	if err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询频道 id=%s", id)
	}
	return &channel, nil
}

// FindByName 按名称查找频道
func (r *channelRepository) FindByName(ctx context.Context, name string) (*model.Channel, error) {
	var channel model.Channel
	if err := r.db.WithContext(ctx).First(&channel, "name = ?", name).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询频道 name=%s", name)
	}
	return &channel, nil
}

// List 返回全部频道
func (r *channelRepository) List(ctx context.Context) ([]model.Channel, error) {
	var channels []model.Channel
	if err := r.db.WithContext(ctx).Order("position ASC").Order("name ASC").Find(&channels).Error; err != nil {
		return nil, wrapDBError(err, "查询频道列表")
	}
	return channels, nil
}

// Create 创建频道
func (r *channelRepository) Create(ctx context.Context, channel *model.Channel) error {
	if err := r.db.WithContext(ctx).Create(channel).Error; err != nil {
		return wrapDBError(err, "创建频道")
	}
	return nil
}
