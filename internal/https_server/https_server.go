// Package https_server 创建 Gin 引擎并配置中间件与路由
package https_server

import (
	"net/http"

	"channel_chat_server/internal/config"
	"channel_chat_server/internal/handler"
	"channel_chat_server/internal/infrastructure/logger"
	"channel_chat_server/internal/infrastructure/middleware"
	"channel_chat_server/internal/router"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Options 引擎可选依赖
type Options struct {
	Auth    gin.HandlerFunc // 写接口认证，nil 表示不认证
	Metrics http.Handler    // /metrics 处理器，nil 表示不暴露
}

// Init 初始化 Gin 引擎
// 顺序：日志与恢复中间件、CORS、TLS 重定向（可选）、业务路由
func Init(cfg *config.Config, handlers *handler.Handlers, opts Options) *gin.Engine {
	if cfg.Mode == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	if cfg.TLS.Enabled {
		engine.Use(middleware.TlsHandler(cfg.MainConfig.Host, cfg.MainConfig.Port))
	}

	rt := router.NewRouter(handlers, opts.Auth, opts.Metrics)
	rt.RegisterRoutes(engine)

	return engine
}
