package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message 消息模型，对应 messages 表
// Content 与 ImageURL 至少有一个非空，创建后不再修改
type Message struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	Content   *string   `gorm:"column:content;type:text"`
	ImageURL  *string   `gorm:"column:image_url;type:varchar(1024)"`
	ChannelID string    `gorm:"column:channel_id;index:idx_messages_channel_created,priority:1;type:varchar(36);not null"`
	UserID    string    `gorm:"column:user_id;index;type:varchar(36);not null"`
	CreatedAt time.Time `gorm:"column:created_at;index:idx_messages_channel_created,priority:2"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate 由服务端分配消息 ID
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
