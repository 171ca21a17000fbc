package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChannelType 频道类型
type ChannelType string

const (
	ChannelTypeText  ChannelType = "TEXT"
	ChannelTypeVoice ChannelType = "VOICE"
)

// Valid 判断是否为已知类型
func (t ChannelType) Valid() bool {
	return t == ChannelTypeText || t == ChannelTypeVoice
}

// Channel 频道模型，对应 channels 表
// 频道类型在有会话引用期间不会变化
type Channel struct {
	ID          string      `gorm:"column:id;primaryKey;type:varchar(36)"`
	Name        string      `gorm:"column:name;type:varchar(100);not null"`
	Type        ChannelType `gorm:"column:type;type:varchar(10);not null;default:TEXT"`
	Position    int         `gorm:"column:position;not null;default:0"`
	CreatedByID string      `gorm:"column:created_by_id;index;type:varchar(36);not null"`
	CreatedAt   time.Time   `gorm:"column:created_at"`
	UpdatedAt   time.Time   `gorm:"column:updated_at"`
}

// TableName 指定表名
func (Channel) TableName() string {
	return "channels"
}

// BeforeCreate 补全 ID 与默认类型
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Type == "" {
		c.Type = ChannelTypeText
	}
	return nil
}
