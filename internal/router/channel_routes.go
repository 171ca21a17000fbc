package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterChannelRoutes 频道与历史消息查询
func (rt *Router) RegisterChannelRoutes(rg *gin.RouterGroup) {
	channelGroup := rg.Group("/channels")
	{
		channelGroup.GET("", rt.handlers.Channel.List)
		channelGroup.GET("/:channelId", rt.handlers.Channel.Get)
		channelGroup.GET("/:channelId/messages", rt.handlers.Channel.History)
	}
}
