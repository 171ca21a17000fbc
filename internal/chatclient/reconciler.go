package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"channel_chat_server/internal/dto/event"
	"channel_chat_server/internal/dto/request"
	"channel_chat_server/internal/dto/respond"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State 连接状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoined:
		return "joined"
	default:
		return "disconnected"
	}
}

var (
	// ErrEmptyMessage 文本为空白且没有图片，不会发出任何帧
	ErrEmptyMessage = errors.New("chatclient: empty message")
	// ErrNotConnected 当前没有可用的实时连接
	ErrNotConnected = errors.New("chatclient: not connected")
)

const writeWait = 10 * time.Second

// Config 客户端配置
type Config struct {
	BaseURL      string // 例如 http://127.0.0.1:8000
	UserId       string
	Token        string
	ChannelId    string
	HistoryLimit int

	HTTPClient    *http.Client
	Dialer        *websocket.Dialer
	NewBackOff    func() backoff.BackOff
	OnStateChange func(State)
	OnError       func(event.ErrorPayload)
}

// Reconciler 单频道客户端
// 每次进入 Connecting 都会独立发起历史拉取与实时连接，连接建立后重新发送 authenticate 与 join_channel
type Reconciler struct {
	cfg   Config
	view  *View
	state atomic.Int32

	writeMu sync.Mutex
	ws      *websocket.Conn
}

func New(cfg Config) *Reconciler {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.NewBackOff == nil {
		cfg.NewBackOff = defaultBackOff
	}
	return &Reconciler{cfg: cfg, view: NewView()}
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0
	return bo
}

func (r *Reconciler) View() *View {
	return r.view
}

func (r *Reconciler) State() State {
	return State(r.state.Load())
}

func (r *Reconciler) setState(s State) {
	if State(r.state.Swap(int32(s))) != s && r.cfg.OnStateChange != nil {
		r.cfg.OnStateChange(s)
	}
}

// Run 连接并保持订阅，断线后按退避策略重连，直到 ctx 结束或退避策略放弃
func (r *Reconciler) Run(ctx context.Context) error {
	bo := r.cfg.NewBackOff()
	for {
		err := r.session(ctx, bo)
		r.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("chatclient: give up reconnecting: %w", err)
		}
		zap.L().Info("chat connection lost, reconnecting",
			zap.String("channel_id", r.cfg.ChannelId), zap.Duration("retry_in", wait), zap.Error(err))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// session 一次连接的完整生命周期，连接断开时返回
func (r *Reconciler) session(ctx context.Context, bo backoff.BackOff) error {
	r.setState(StateConnecting)
	go r.loadHistory(ctx)

	ws, _, err := r.cfg.Dialer.DialContext(ctx, wsURL(r.cfg.BaseURL), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	r.setConn(ws)
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer func() {
		stop()
		r.setConn(nil)
		_ = ws.Close()
	}()

	r.setState(StateAuthenticating)
	if err := r.write(event.Authenticate, request.AuthenticateRequest{UserId: r.cfg.UserId, Token: r.cfg.Token}); err != nil {
		return err
	}
	if err := r.write(event.JoinChannel, request.JoinChannelRequest{ChannelId: r.cfg.ChannelId}); err != nil {
		return err
	}

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		env, err := event.Decode(raw)
		if err != nil {
			continue
		}
		r.handle(env, bo)
	}
}

func (r *Reconciler) handle(env event.Envelope, bo backoff.BackOff) {
	switch env.Event {
	case event.Joined:
		var payload event.ChannelPayload
		if json.Unmarshal(env.Data, &payload) == nil && payload.ChannelId == r.cfg.ChannelId {
			r.setState(StateJoined)
			bo.Reset()
		}
	case event.NewMessage:
		var msg respond.MessageWithUser
		if json.Unmarshal(env.Data, &msg) == nil && msg.ChannelId == r.cfg.ChannelId {
			r.view.Merge(msg)
		}
	case event.Error:
		var payload event.ErrorPayload
		if json.Unmarshal(env.Data, &payload) == nil && r.cfg.OnError != nil {
			r.cfg.OnError(payload)
		}
	}
}

func (r *Reconciler) loadHistory(ctx context.Context) {
	snapshot, err := FetchHistory(ctx, r.cfg.HTTPClient, r.cfg.BaseURL, r.cfg.ChannelId, r.cfg.HistoryLimit)
	if err != nil {
		zap.L().Warn("fetch history", zap.String("channel_id", r.cfg.ChannelId), zap.Error(err))
		return
	}
	r.view.LoadSnapshot(snapshot)
}

// Send 发送消息，文本为空白且没有图片时直接返回 ErrEmptyMessage
func (r *Reconciler) Send(content, imageUrl string) error {
	if strings.TrimSpace(content) == "" && strings.TrimSpace(imageUrl) == "" {
		return ErrEmptyMessage
	}
	return r.write(event.SendMessage, request.SendMessageRequest{
		ChannelId: r.cfg.ChannelId,
		UserId:    r.cfg.UserId,
		Content:   content,
		ImageUrl:  imageUrl,
	})
}

func (r *Reconciler) setConn(ws *websocket.Conn) {
	r.writeMu.Lock()
	r.ws = ws
	r.writeMu.Unlock()
}

func (r *Reconciler) write(name string, payload any) error {
	frame, err := event.Encode(name, payload)
	if err != nil {
		return err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if r.ws == nil {
		return ErrNotConnected
	}
	_ = r.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return r.ws.WriteMessage(websocket.TextMessage, frame)
}

// wsURL http(s)://host -> ws(s)://host/ws
func wsURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}
