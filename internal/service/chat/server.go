package chat

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"channel_chat_server/internal/infrastructure/metrics"
	"channel_chat_server/internal/infrastructure/mq"
	"channel_chat_server/internal/service"
	"channel_chat_server/internal/validation"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	ModeChannel = "channel"
	ModeKafka   = "kafka"
)

// ChatServerConfig 实时聊天服务依赖
type ChatServerConfig struct {
	Mode          string // channel 或 kafka
	Channels      service.ChannelService
	Messages      service.MessageService
	Validator     *validation.Validator
	Authenticator Authenticator // 为空时信任客户端 userId
	Broker        MessageBroker // 为空时按 Mode 创建
	Kafka         *mq.KafkaClient
	Metrics       *metrics.Metrics
	Conn          ConnOptions
	TransmitSize  int
	// PublishTimeout 消息落库后查询作者与发布的时限，默认 5s
	PublishTimeout time.Duration
	// AllowedOrigins 为空时允许任意来源
	AllowedOrigins []string
}

// ChatServer 实时聊天服务
type ChatServer struct {
	registry   *Registry
	broker     MessageBroker
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	upgrader   websocket.Upgrader
	opts       ConnOptions
}

func NewChatServer(cfg ChatServerConfig) (*ChatServer, error) {
	if cfg.Channels == nil || cfg.Messages == nil || cfg.Validator == nil {
		return nil, fmt.Errorf("chat server requires channel service, message service and validator")
	}
	cfg.Conn.applyDefaults()

	registry := NewRegistry()
	router := NewRouter(registry, cfg.Metrics)

	broker := cfg.Broker
	if broker == nil {
		switch cfg.Mode {
		case ModeKafka:
			if cfg.Kafka == nil {
				return nil, fmt.Errorf("kafka mode requires a kafka client")
			}
			broker = NewKafkaBroker(router, cfg.Kafka.Producer, cfg.Kafka.Consumer)
		case "", ModeChannel:
			broker = NewStandaloneBroker(router, cfg.TransmitSize)
		default:
			return nil, fmt.Errorf("unknown message mode %q", cfg.Mode)
		}
	}

	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	auth := cfg.Authenticator
	if auth == nil {
		auth = NewTrustAuthenticator()
	}

	s := &ChatServer{
		registry: registry,
		broker:   broker,
		metrics:  cfg.Metrics,
		opts:     cfg.Conn,
		dispatcher: &Dispatcher{
			registry:  registry,
			channels:  cfg.Channels,
			messages:  cfg.Messages,
			validator: cfg.Validator,
			auth:      auth,
			broker:    broker,
			metrics:   cfg.Metrics,

			publishTimeout: cfg.PublishTimeout,
		},
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return s, nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (s *ChatServer) Registry() *Registry {
	return s.registry
}

// Start 启动消息代理消费循环，阻塞到 ctx 结束
func (s *ChatServer) Start(ctx context.Context) error {
	return s.broker.Start(ctx)
}

// ServeWs 升级 HTTP 连接并启动读写协程
func (s *ChatServer) ServeWs(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Info("ws upgrade", zap.Error(err))
		return
	}
	conn := newUserConn(uuid.NewString(), ws, s.opts, s.dispatcher.HandleFrame, s.Detach)
	if err := s.Attach(conn); err != nil {
		zap.L().Error("register connection", zap.Error(err))
		_ = ws.Close()
		return
	}
	conn.run()
	zap.L().Info("ws connected", zap.String("conn_id", conn.ID()), zap.String("remote", r.RemoteAddr))
}

// Attach 登记一个新连接
func (s *ChatServer) Attach(conn Conn) error {
	if err := s.registry.Register(conn); err != nil {
		return err
	}
	s.metrics.ConnOpened()
	return nil
}

// Detach 连接断开时的清理，任何断开路径都会调用
func (s *ChatServer) Detach(connId string) {
	userId, _ := s.registry.UserOf(connId)
	channels := s.registry.Disconnect(connId)
	if channels == nil {
		// 未登记或已清理
		return
	}
	s.metrics.ConnClosed()
	s.metrics.Unsubscribed(len(channels))
	zap.L().Info("ws disconnected",
		zap.String("conn_id", connId),
		zap.String("user_id", userId),
		zap.Strings("channels", channels))
}

// HandleFrame 处理连接发来的一帧
func (s *ChatServer) HandleFrame(ctx context.Context, conn Conn, raw []byte) {
	s.dispatcher.HandleFrame(ctx, conn, raw)
}

// Close 关闭所有连接后关闭消息代理
func (s *ChatServer) Close() error {
	for _, conn := range s.registry.AllConns() {
		conn.Close()
	}
	return s.broker.Close()
}
