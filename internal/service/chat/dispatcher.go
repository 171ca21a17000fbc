package chat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"channel_chat_server/internal/dto/event"
	"channel_chat_server/internal/dto/request"
	"channel_chat_server/internal/dto/respond"
	"channel_chat_server/internal/infrastructure/metrics"
	"channel_chat_server/internal/model"
	"channel_chat_server/internal/service"
	"channel_chat_server/internal/validation"
	"channel_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Dispatcher 处理单个连接发来的事件
// 错误只回给发起连接，连接保持打开
type Dispatcher struct {
	registry  *Registry
	channels  service.ChannelService
	messages  service.MessageService
	validator *validation.Validator
	auth      Authenticator
	broker    MessageBroker
	metrics   *metrics.Metrics
	seq       sequencer
	// publishTimeout 消息落库后查询作者与发布的时限
	publishTimeout time.Duration
}

// HandleFrame 解码并分发一帧
func (d *Dispatcher) HandleFrame(ctx context.Context, conn Conn, raw []byte) {
	env, err := event.Decode(raw)
	if err != nil {
		d.reject(conn, "", errorx.Wrap(err, errorx.CodeInvalidParam, "无法解析的事件"))
		return
	}

	switch env.Event {
	case event.Authenticate:
		err = d.authenticate(ctx, conn, env.Data)
	case event.JoinChannel:
		err = d.joinChannel(ctx, conn, env.Data)
	case event.LeaveChannel:
		err = d.leaveChannel(conn, env.Data)
	case event.SendMessage:
		err = d.sendMessage(ctx, conn, env.Data)
	default:
		err = errorx.Newf(errorx.CodeInvalidParam, "未知事件 %s", env.Event)
	}
	if err != nil {
		d.reject(conn, env.Event, err)
	}
}

// bind 反序列化并校验负载
func (d *Dispatcher) bind(data json.RawMessage, req any) error {
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, req); err != nil {
		return errorx.Wrap(err, errorx.CodeInvalidParam, "参数格式错误")
	}
	return d.validator.Struct(req)
}

func (d *Dispatcher) authenticate(ctx context.Context, conn Conn, data json.RawMessage) error {
	var req request.AuthenticateRequest
	if err := d.bind(data, &req); err != nil {
		return err
	}
	userId, err := d.auth.Authenticate(ctx, &req)
	if err != nil {
		return err
	}
	if err := d.registry.Authenticate(conn.ID(), userId); err != nil {
		return err
	}
	zap.L().Debug("connection authenticated",
		zap.String("conn_id", conn.ID()), zap.String("user_id", userId))
	return d.reply(conn, event.Authenticated, event.AuthenticatedPayload{UserId: userId})
}

func (d *Dispatcher) joinChannel(ctx context.Context, conn Conn, data json.RawMessage) error {
	if _, ok := d.registry.UserOf(conn.ID()); !ok {
		return errorx.ErrUnauthorized
	}
	var req request.JoinChannelRequest
	if err := d.bind(data, &req); err != nil {
		return err
	}
	if err := d.requireText(ctx, req.ChannelId); err != nil {
		return err
	}
	joined, err := d.registry.Join(conn.ID(), req.ChannelId)
	if err != nil {
		return err
	}
	if joined {
		d.metrics.Subscribed()
	}
	return d.reply(conn, event.Joined, event.ChannelPayload{ChannelId: req.ChannelId})
}

func (d *Dispatcher) leaveChannel(conn Conn, data json.RawMessage) error {
	var req request.LeaveChannelRequest
	if err := d.bind(data, &req); err != nil {
		return err
	}
	if d.registry.Leave(conn.ID(), req.ChannelId) {
		d.metrics.Unsubscribed(1)
	}
	return d.reply(conn, event.Left, event.ChannelPayload{ChannelId: req.ChannelId})
}

// sendMessage 校验 -> 写入 -> 查询作者 -> 发布
// 同一频道的写入与发布在序列锁内完成
func (d *Dispatcher) sendMessage(ctx context.Context, conn Conn, data json.RawMessage) error {
	userId, ok := d.registry.UserOf(conn.ID())
	if !ok {
		return errorx.ErrUnauthorized
	}
	var req request.SendMessageRequest
	if err := d.bind(data, &req); err != nil {
		return err
	}
	if req.UserId != "" && req.UserId != userId {
		return errorx.ErrUserMismatch
	}
	if err := d.requireText(ctx, req.ChannelId); err != nil {
		return err
	}

	unlock := d.seq.lock(req.ChannelId)
	defer unlock()

	msg, err := d.messages.Append(ctx, req.ChannelId, userId, req.Content, req.ImageUrl)
	if err != nil {
		return err
	}

	// 已落库的消息必须送达当前订阅者，发送方断开不影响后续步骤
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.publishTimeout)
	defer cancel()

	author, err := d.messages.ResolveAuthor(pubCtx, userId)
	if err != nil {
		zap.L().Error("message stored but author lookup failed, not broadcasting",
			zap.String("message_id", msg.ID), zap.Error(err))
		return err
	}
	frame, err := event.Encode(event.NewMessage, respond.NewMessageWithUser(msg, author))
	if err != nil {
		return errorx.Wrap(err, errorx.CodeServerBusy, "编码消息失败")
	}
	if err := d.broker.Publish(pubCtx, req.ChannelId, frame); err != nil {
		return errorx.Wrap(err, errorx.CodeMQError, "消息投递失败")
	}
	d.metrics.MessagePublished()
	return nil
}

// requireText 频道必须存在且为文字频道
func (d *Dispatcher) requireText(ctx context.Context, channelId string) error {
	channelType, err := d.channels.ResolveType(ctx, channelId)
	if err != nil {
		return err
	}
	if channelType != model.ChannelTypeText {
		return errorx.ErrVoiceChannel
	}
	return nil
}

func (d *Dispatcher) reply(conn Conn, name string, payload any) error {
	frame, err := event.Encode(name, payload)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeServerBusy, "编码事件失败")
	}
	if err := conn.Send(frame); err != nil && !errors.Is(err, ErrConnClosed) {
		zap.L().Warn("send reply", zap.String("conn_id", conn.ID()), zap.String("event", name), zap.Error(err))
	}
	return nil
}

// reject 向发起连接回 error 事件
func (d *Dispatcher) reject(conn Conn, name string, err error) {
	code := errorx.GetCode(err)
	d.metrics.Rejected(name, code)

	fields := []zap.Field{
		zap.String("conn_id", conn.ID()),
		zap.String("event", name),
		zap.Int("code", code),
		zap.Error(err),
	}
	if code == errorx.CodeDBError || code == errorx.CodeMQError || code == errorx.CodeServerBusy {
		zap.L().Error("event rejected", fields...)
	} else {
		zap.L().Info("event rejected", fields...)
	}

	_ = d.reply(conn, event.Error, event.ErrorPayload{
		Code:    code,
		Message: errorx.PublicMessage(err),
		Event:   name,
	})
}
