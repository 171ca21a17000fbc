// Package chat 实现实时聊天核心：连接注册表、广播路由、消息代理与会话事件处理
package chat

import "errors"

var (
	// ErrConnClosed 连接已断开或从未注册
	ErrConnClosed = errors.New("connection closed")
	// ErrSendBufferFull 连接发送缓冲已满，视为慢消费者
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrBrokerClosed 消息代理已关闭
	ErrBrokerClosed = errors.New("broker closed")
)

// Conn 一个实时连接句柄
// Send 不得阻塞，缓冲满时返回 ErrSendBufferFull
type Conn interface {
	ID() string
	Send(frame []byte) error
	Close()
}
