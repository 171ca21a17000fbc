// Package respond 定义返回给客户端的数据结构
package respond

import (
	"time"

	"channel_chat_server/internal/model"
)

// 作者资料缺失时使用的占位信息
const (
	PlaceholderUsername    = "Unknown"
	PlaceholderDisplayName = "Unknown User"
)

// UserProfile 消息作者资料
type UserProfile struct {
	Id          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName,omitempty"`
	AvatarUrl   *string `json:"avatarUrl"`
}

// PlaceholderProfile 返回作者不存在时的占位资料
func PlaceholderProfile(userId string) UserProfile {
	return UserProfile{
		Id:          userId,
		Username:    PlaceholderUsername,
		DisplayName: PlaceholderDisplayName,
		AvatarUrl:   nil,
	}
}

// NewUserProfile 从用户模型构建资料
func NewUserProfile(u *model.User) UserProfile {
	return UserProfile{
		Id:        u.ID,
		Username:  u.Username,
		AvatarUrl: u.AvatarURL,
	}
}

// MessageWithUser 带作者资料的消息，实时广播与历史查询共用
type MessageWithUser struct {
	Id        string      `json:"id"`
	Content   *string     `json:"content"`
	ImageUrl  *string     `json:"imageUrl"`
	ChannelId string      `json:"channelId"`
	UserId    string      `json:"userId"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	User      UserProfile `json:"user"`
}

// NewMessageWithUser 组合消息与作者资料
func NewMessageWithUser(m *model.Message, user UserProfile) MessageWithUser {
	return MessageWithUser{
		Id:        m.ID,
		Content:   m.Content,
		ImageUrl:  m.ImageURL,
		ChannelId: m.ChannelID,
		UserId:    m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		User:      user,
	}
}
