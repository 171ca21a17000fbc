package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMessageRoutes 非实时消息创建
func (rt *Router) RegisterMessageRoutes(rg *gin.RouterGroup) {
	handlers := append(rt.protected(), rt.handlers.Message.Create)
	rg.POST("/messages", handlers...)
}
