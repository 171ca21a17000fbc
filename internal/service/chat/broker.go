package chat

import "context"

// MessageBroker 发送流程与广播路由之间的传输
// channel 模式在进程内转发，kafka 模式经 Kafka 分发到每个服务实例
type MessageBroker interface {
	// Publish 发布一帧，同一频道的帧按发布顺序投递
	Publish(ctx context.Context, channelId string, frame []byte) error
	// Start 阻塞消费，直到 ctx 结束或 Close
	Start(ctx context.Context) error
	Close() error
}
