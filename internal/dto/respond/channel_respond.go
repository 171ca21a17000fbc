package respond

import (
	"time"

	"channel_chat_server/internal/model"
)

// ChannelRespond 频道信息
type ChannelRespond struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Position    int       `json:"position"`
	CreatedById string    `json:"createdById"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewChannelRespond 从频道模型构建返回结构
func NewChannelRespond(c *model.Channel) ChannelRespond {
	return ChannelRespond{
		Id:          c.ID,
		Name:        c.Name,
		Type:        string(c.Type),
		Position:    c.Position,
		CreatedById: c.CreatedByID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// HealthRespond 健康检查
type HealthRespond struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
