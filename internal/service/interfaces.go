// Package service 定义业务层接口，供 Handler 层与实时会话调用
package service

import (
	"context"

	"channel_chat_server/internal/dto/respond"
	"channel_chat_server/internal/model"
)

// ChannelService 频道目录
type ChannelService interface {
	// ResolveType 返回频道类型，频道不存在时返回 CodeNotFound
	ResolveType(ctx context.Context, channelId string) (model.ChannelType, error)
	// GetChannel 获取单个频道
	GetChannel(ctx context.Context, channelId string) (*respond.ChannelRespond, error)
	// ListChannels 列出所有频道
	ListChannels(ctx context.Context) ([]respond.ChannelRespond, error)
}

// MessageService 消息存储网关
type MessageService interface {
	// Append 写入消息，存储失败返回 CodeDBError
	Append(ctx context.Context, channelId, userId, content, imageUrl string) (*model.Message, error)
	// ResolveAuthor 查询作者资料，不存在时返回占位资料
	ResolveAuthor(ctx context.Context, userId string) (respond.UserProfile, error)
	// Create 写入消息并附带作者资料，HTTP 接口使用
	Create(ctx context.Context, channelId, userId, content, imageUrl string) (*respond.MessageWithUser, error)
	// History 返回频道最近 limit 条消息，按创建时间升序
	History(ctx context.Context, channelId string, limit int) ([]respond.MessageWithUser, error)
}
