package chat

import (
	"context"
	"sync"
)

type delivery struct {
	channelId string
	frame     []byte
}

// StandaloneBroker 单机模式，不依赖外部消息队列
// Transmit 由单个 Start 循环按 FIFO 顺序消费
type StandaloneBroker struct {
	router    *Router
	Transmit  chan delivery
	done      chan struct{}
	closeOnce sync.Once
}

func NewStandaloneBroker(router *Router, size int) *StandaloneBroker {
	if size <= 0 {
		size = 1024
	}
	return &StandaloneBroker{
		router:   router,
		Transmit: make(chan delivery, size),
		done:     make(chan struct{}),
	}
}

// Publish 放入转发通道，有空位时直接入队，通道满时等待直到 ctx 结束
func (b *StandaloneBroker) Publish(ctx context.Context, channelId string, frame []byte) error {
	d := delivery{channelId: channelId, frame: frame}
	select {
	case <-b.done:
		return ErrBrokerClosed
	default:
	}
	select {
	case b.Transmit <- d:
		return nil
	default:
	}
	select {
	case b.Transmit <- d:
		return nil
	case <-b.done:
		return ErrBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start 主循环，逐条交给 Router
func (b *StandaloneBroker) Start(ctx context.Context) error {
	for {
		select {
		case d := <-b.Transmit:
			b.router.Deliver(d.channelId, d.frame)
		case <-b.done:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *StandaloneBroker) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}
