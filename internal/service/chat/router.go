package chat

import (
	"errors"

	"channel_chat_server/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

// Router 将一帧投递给频道在投递时刻的全部订阅者
type Router struct {
	registry *Registry
	metrics  *metrics.Metrics
}

func NewRouter(registry *Registry, m *metrics.Metrics) *Router {
	return &Router{registry: registry, metrics: m}
}

// Deliver 每个订阅者入队一次，返回成功入队的连接数
// 发送缓冲已满的连接会被关闭，关闭过程会将其移出注册表
func (r *Router) Deliver(channelId string, frame []byte) int {
	delivered := 0
	for _, conn := range r.registry.Subscribers(channelId) {
		err := conn.Send(frame)
		if err == nil {
			delivered++
			continue
		}
		if errors.Is(err, ErrSendBufferFull) {
			zap.L().Warn("slow consumer, closing connection",
				zap.String("conn_id", conn.ID()),
				zap.String("channel_id", channelId))
			r.metrics.SlowConsumer()
			conn.Close()
		}
	}
	r.metrics.Delivered(delivered)
	return delivered
}
