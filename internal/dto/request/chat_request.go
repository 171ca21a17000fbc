// Package request 定义客户端请求结构，字段校验使用 binding tag
package request

// AuthenticateRequest 实时会话认证
// 开启 JWT 时必须携带 Token，UserId 若同时提供需与 Token 一致
type AuthenticateRequest struct {
	UserId string `json:"userId" binding:"omitempty,uuid"`
	Token  string `json:"token"`
}

// JoinChannelRequest 加入频道
type JoinChannelRequest struct {
	ChannelId string `json:"channelId" binding:"required,uuid"`
}

// LeaveChannelRequest 离开频道
type LeaveChannelRequest struct {
	ChannelId string `json:"channelId" binding:"required,uuid"`
}

// SendMessageRequest 实时会话发送消息
// Content 去除首尾空白后为空且没有 ImageUrl 时拒绝，见 content_or_image 规则
type SendMessageRequest struct {
	ChannelId string `json:"channelId" binding:"required,uuid"`
	UserId    string `json:"userId" binding:"omitempty,uuid"`
	Content   string `json:"content" binding:"omitempty,max=4000"`
	ImageUrl  string `json:"imageUrl" binding:"omitempty,url"`
}
