package chat

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ConnOptions 单个连接的读写参数
type ConnOptions struct {
	SendBufferSize int
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

func (o *ConnOptions) applyDefaults() {
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 256
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 16 * 1024
	}
}

// UserConn 一个 WebSocket 连接
// 读协程按顺序处理本连接的事件，写协程是唯一的 ws 写入方
type UserConn struct {
	id   string
	ws   *websocket.Conn
	opts ConnOptions

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	onClose   func(connId string)
	handle    func(ctx context.Context, conn Conn, raw []byte)
}

func newUserConn(id string, ws *websocket.Conn, opts ConnOptions,
	handle func(ctx context.Context, conn Conn, raw []byte), onClose func(connId string)) *UserConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &UserConn{
		id:      id,
		ws:      ws,
		opts:    opts,
		send:    make(chan []byte, opts.SendBufferSize),
		ctx:     ctx,
		cancel:  cancel,
		onClose: onClose,
		handle:  handle,
	}
}

func (c *UserConn) ID() string {
	return c.id
}

// Send 非阻塞入队
func (c *UserConn) Send(frame []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close 取消进行中的存储调用，移出注册表，然后关闭发送通道让写协程退出
func (c *UserConn) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.onClose != nil {
			c.onClose(c.id)
		}
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()
	})
}

func (c *UserConn) run() {
	go c.writePump()
	go c.readPump()
}

func (c *UserConn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Info("ws read", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		if !c.process(raw) {
			return
		}
	}
}

// process 处理一帧，发生 panic 时记录并返回 false
func (c *UserConn) process(raw []byte) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("[Recovery from panic] ws event",
				zap.String("conn_id", c.id),
				zap.Any("error", rec),
				zap.String("stack", string(debug.Stack())))
			ok = false
		}
	}()
	c.handle(c.ctx, c, raw)
	return true
}

func (c *UserConn) writePump() {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		c.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				zap.L().Info("ws write", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
