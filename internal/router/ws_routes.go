package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes 实时会话入口
// 请求示例: ws://host:port/ws，连接后发送 authenticate 事件
func (rt *Router) RegisterWebSocketRoutes(r *gin.Engine, api *gin.RouterGroup) {
	r.GET("/ws", rt.handlers.Ws.Connect)
	api.GET("/realtime/stats", rt.handlers.Ws.Stats)
}
