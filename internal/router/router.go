// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"net/http"

	"channel_chat_server/internal/handler"

	"github.com/gin-gonic/gin"
)

// Router 路由管理器
type Router struct {
	handlers *handler.Handlers
	auth     gin.HandlerFunc
	metrics  http.Handler
}

// NewRouter 创建路由管理器
// auth 为写接口的认证中间件，为 nil 时不挂载；metrics 为 nil 时不暴露 /metrics
func NewRouter(handlers *handler.Handlers, auth gin.HandlerFunc, metrics http.Handler) *Router {
	return &Router{handlers: handlers, auth: auth, metrics: metrics}
}

// RegisterRoutes 注册所有路由
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/health", rt.handlers.Health.Health)

	rt.RegisterChannelRoutes(api)
	rt.RegisterMessageRoutes(api)
	rt.RegisterWebSocketRoutes(r, api)

	if rt.metrics != nil {
		r.GET("/metrics", gin.WrapH(rt.metrics))
	}
}

// protected 写接口的中间件链
func (rt *Router) protected() []gin.HandlerFunc {
	if rt.auth == nil {
		return nil
	}
	return []gin.HandlerFunc{rt.auth}
}
