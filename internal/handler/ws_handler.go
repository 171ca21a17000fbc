package handler

import (
	"channel_chat_server/internal/service/chat"

	"github.com/gin-gonic/gin"
)

// WsHandler 实时会话入口
type WsHandler struct {
	server *chat.ChatServer
}

func NewWsHandler(server *chat.ChatServer) *WsHandler {
	return &WsHandler{server: server}
}

// Connect 升级为 WebSocket，认证在会话内通过 authenticate 事件完成
// GET /ws
func (h *WsHandler) Connect(c *gin.Context) {
	h.server.ServeWs(c.Writer, c.Request)
}

// Stats 在线连接与订阅统计
// GET /api/realtime/stats
func (h *WsHandler) Stats(c *gin.Context) {
	HandleSuccess(c, h.server.Registry().Stats())
}
