package handler

import (
	"channel_chat_server/internal/service"
	"channel_chat_server/internal/service/chat"
)

// Handlers 聚合所有 Handler 实例，Router 层通过此结构访问各个 Handler
type Handlers struct {
	Health  *HealthHandler
	Channel *ChannelHandler
	Message *MessageHandler
	Ws      *WsHandler
}

// NewHandlers 创建并注入所有 Handler 实例
// requireSameUser 为 true 时，创建消息的 userId 必须与 Token 中的用户一致
func NewHandlers(svc *service.Services, chatServer *chat.ChatServer, requireSameUser bool) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(),
		Channel: NewChannelHandler(svc.Channel, svc.Message),
		Message: NewMessageHandler(svc.Channel, svc.Message, requireSameUser),
		Ws:      NewWsHandler(chatServer),
	}
}
