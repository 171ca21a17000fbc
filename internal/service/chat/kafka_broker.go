package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"channel_chat_server/internal/infrastructure/mq"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaBroker 集群模式
// 以频道 ID 为 Key 写入，Hash 分区保证同一频道落在同一分区；每个实例独立消费组，各自投递给本地订阅者
type KafkaBroker struct {
	router    *Router
	producer  mq.Producer
	consumer  mq.Consumer
	closeOnce sync.Once
	closed    chan struct{}
}

func NewKafkaBroker(router *Router, producer mq.Producer, consumer mq.Consumer) *KafkaBroker {
	return &KafkaBroker{
		router:   router,
		producer: producer,
		consumer: consumer,
		closed:   make(chan struct{}),
	}
}

func (b *KafkaBroker) Publish(ctx context.Context, channelId string, frame []byte) error {
	select {
	case <-b.closed:
		return ErrBrokerClosed
	default:
	}
	return b.producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(channelId),
		Value: frame,
	})
}

// Start 消费循环，读取失败时指数退避重试
func (b *KafkaBroker) Start(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0

	for {
		msg, err := b.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || b.isClosed() {
				return nil
			}
			wait := bo.NextBackOff()
			zap.L().Error("kafka read message", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return nil
			case <-b.closed:
				return nil
			}
		}
		bo.Reset()
		b.router.Deliver(string(msg.Key), msg.Value)
	}
}

func (b *KafkaBroker) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

func (b *KafkaBroker) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closed)
		err = errors.Join(b.producer.Close(), b.consumer.Close())
	})
	return err
}
