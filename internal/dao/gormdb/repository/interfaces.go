// Package repository 定义数据访问层接口和聚合结构
// 所有 Repository 接口在此文件定义，具体实现在各自的文件中
package repository

import (
	"context"

	"channel_chat_server/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	// FindByID 根据 ID 查找用户，不存在时返回 CodeNotFound
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByIDs 批量查找用户，缺失的 ID 直接忽略
	FindByIDs(ctx context.Context, ids []string) ([]model.User, error)
	// FindByUsername 根据用户名查找
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// Create 创建新用户
	Create(ctx context.Context, user *model.User) error
}

// ChannelRepository 频道数据访问接口
type ChannelRepository interface {
	// FindByID 根据 ID 查找频道，不存在时返回 CodeNotFound
	FindByID(ctx context.Context, id string) (*model.Channel, error)
	// FindByName 根据名称查找频道
	FindByName(ctx context.Context, name string) (*model.Channel, error)
	// List 按 position、name 排序返回全部频道
	List(ctx context.Context) ([]model.Channel, error)
	// Create 创建频道
	Create(ctx context.Context, channel *model.Channel) error
}

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// Create 写入一条消息，ID 与时间戳由存储层补全
	Create(ctx context.Context, message *model.Message) error
	// FindLatestByChannel 返回频道最新的 limit 条消息，按创建时间倒序
	FindLatestByChannel(ctx context.Context, channelID string, limit int) ([]model.Message, error)
}

// Repositories 聚合所有 Repository 实例
// Service 层通过此结构访问数据层
type Repositories struct {
	db      *gorm.DB
	User    UserRepository
	Channel ChannelRepository
	Message MessageRepository
}

// NewRepositories 基于同一个 GORM 实例创建所有 Repository
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:      db,
		User:    NewUserRepository(db),
		Channel: NewChannelRepository(db),
		Message: NewMessageRepository(db),
	}
}

// Transaction 在数据库事务中执行函数，fn 返回错误时回滚
func (r *Repositories) Transaction(ctx context.Context, fn func(txRepos *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
