// Package mq 封装 Kafka 底层连接 (Writer/Reader)
// 纯技术组件，不包含聊天业务逻辑
package mq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"channel_chat_server/internal/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer 消息写入端，*kafka.Writer 满足此接口
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer 消息读取端，*kafka.Reader 满足此接口
type Consumer interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaClient Kafka 客户端
type KafkaClient struct {
	Producer Producer
	Consumer Consumer
	brokers  []string
	topic    string
}

// Brokers 解析逗号分隔的地址列表
func Brokers(hostPort string) []string {
	var brokers []string
	for _, addr := range strings.Split(hostPort, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			brokers = append(brokers, addr)
		}
	}
	return brokers
}

// NewKafkaClient 创建 Writer 与 Reader
// groupID 每个服务实例唯一，从最新位置开始消费，每个实例都能收到全部消息
func NewKafkaClient(cfg *config.KafkaConfig, timeout time.Duration, groupID string) *KafkaClient {
	brokers := Brokers(cfg.HostPort)
	return &KafkaClient{
		Producer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  cfg.ChatTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           timeout,
			BatchTimeout:           5 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
		Consumer: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          cfg.ChatTopic,
			GroupID:        groupID,
			CommitInterval: timeout,
			StartOffset:    kafka.LastOffset,
		}),
		brokers: brokers,
		topic:   cfg.ChatTopic,
	}
}

// CreateTopic 创建聊天主题，主题已存在时 Kafka 返回的错误被忽略
func (k *KafkaClient) CreateTopic(partitions int) error {
	if len(k.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.Dial("tcp", k.brokers[0])
	if err != nil {
		return fmt.Errorf("dial kafka %s: %w", k.brokers[0], err)
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             k.topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil && err != kafka.TopicAlreadyExists {
		return fmt.Errorf("create topic %s: %w", k.topic, err)
	}
	return nil
}

// Close 关闭 Writer 与 Reader
func (k *KafkaClient) Close() {
	if k.Producer != nil {
		if err := k.Producer.Close(); err != nil {
			zap.L().Error("close kafka producer", zap.Error(err))
		}
	}
	if k.Consumer != nil {
		if err := k.Consumer.Close(); err != nil {
			zap.L().Error("close kafka consumer", zap.Error(err))
		}
	}
}
