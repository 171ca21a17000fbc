package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channel_chat_server/internal/config"
	"channel_chat_server/internal/dao/gormdb"
	myredis "channel_chat_server/internal/dao/redis"
	"channel_chat_server/internal/handler"
	"channel_chat_server/internal/https_server"
	"channel_chat_server/internal/infrastructure/logger"
	"channel_chat_server/internal/infrastructure/metrics"
	"channel_chat_server/internal/infrastructure/middleware"
	"channel_chat_server/internal/infrastructure/mq"
	"channel_chat_server/internal/service"
	"channel_chat_server/internal/service/chat"
	"channel_chat_server/internal/validation"
	"channel_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zap.L().Sync() }()
	zap.L().Info("日志初始化成功")

	// 3. 初始化数据库
	db, repos, err := gormdb.Init(&conf.DatabaseConfig, conf.Mode)
	if err != nil {
		zap.L().Fatal("数据库初始化失败", zap.Error(err))
	}
	defer func() { _ = gormdb.Close(db) }()
	zap.L().Info("数据库初始化成功", zap.String("driver", conf.Driver))

	// 4. 初始化 Redis（可选）
	var cache myredis.AsyncCacheService
	if conf.RedisConfig.Enabled {
		redisCache, err := myredis.Init(context.Background(), &conf.RedisConfig)
		if err != nil {
			zap.L().Fatal("Redis 初始化失败", zap.Error(err))
		}
		defer func() { _ = redisCache.Close() }()
		cache = redisCache
		zap.L().Info("Redis 初始化成功")
	}

	// 5. 参数校验器，HTTP 与实时会话共用
	v, err := validation.New(conf.Locale)
	if err != nil {
		zap.L().Fatal("校验器初始化失败", zap.Error(err))
	}
	v.Install()

	// 6. Service 层
	svc := service.NewServices(repos, cache, &conf.ChatConfig)

	// 7. ChatServer
	m := metrics.NewDefault()
	chatConf := chat.ChatServerConfig{
		Mode:      conf.MessageMode,
		Channels:  svc.Channel,
		Messages:  svc.Message,
		Validator: v,
		Metrics:   m,
		Conn: chat.ConnOptions{
			SendBufferSize: conf.SendBufferSize,
			WriteWait:      conf.WriteWait,
			PongWait:       conf.PongWait,
			MaxMessageSize: conf.MaxMessageSize,
		},
		AllowedOrigins: conf.AllowedOrigins,
		PublishTimeout: conf.StoreTimeout,
	}

	var auth gin.HandlerFunc
	if conf.JWTConfig.Enabled {
		tokens := jwt.NewManager(conf.Secret, conf.AccessTokenExpiry)
		chatConf.Authenticator = chat.NewTokenAuthenticator(tokens)
		auth = middleware.JWTAuth(tokens)
	}

	if conf.MessageMode == chat.ModeKafka {
		kafkaClient := mq.NewKafkaClient(&conf.KafkaConfig, conf.KafkaTimeout(), "chat-"+uuid.NewString())
		if err := kafkaClient.CreateTopic(conf.Partition); err != nil {
			zap.L().Warn("创建 Kafka 主题失败", zap.Error(err))
		}
		chatConf.Kafka = kafkaClient
	}

	chatServer, err := chat.NewChatServer(chatConf)
	if err != nil {
		zap.L().Fatal("ChatServer 初始化失败", zap.Error(err))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := chatServer.Start(ctx); err != nil {
			zap.L().Error("ChatServer 退出", zap.Error(err))
		}
	}()
	zap.L().Info("ChatServer 初始化成功", zap.String("mode", conf.MessageMode))

	// 8. HTTP 服务器
	handlers := handler.NewHandlers(svc, chatServer, conf.JWTConfig.Enabled)
	engine := https_server.Init(conf, handlers, https_server.Options{Auth: auth, Metrics: m.Handler()})
	srv := &http.Server{
		Addr:    conf.Addr(),
		Handler: engine,
	}

	go func() {
		var err error
		if conf.TLS.Enabled {
			err = srv.ListenAndServeTLS(conf.TLS.CertFile, conf.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()
	zap.L().Info("服务已启动", zap.String("addr", conf.Addr()))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("关闭服务器...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP 服务关闭失败", zap.Error(err))
	}
	cancel()
	if err := chatServer.Close(); err != nil {
		zap.L().Error("ChatServer 关闭失败", zap.Error(err))
	}
	zap.L().Info("服务器已关闭")
}
