// Package event 定义实时会话的帧格式与事件名
// 每一帧都是 {"event": 事件名, "data": 负载}
package event

import (
	"encoding/json"
	"fmt"
)

// 客户端发往服务端的事件
const (
	Authenticate = "authenticate"
	JoinChannel  = "join_channel"
	LeaveChannel = "leave_channel"
	SendMessage  = "send_message"
)

// 服务端发往客户端的事件
const (
	Authenticated = "authenticated"
	Joined        = "joined"
	Left          = "left"
	NewMessage    = "new_message"
	Error         = "error"
)

// Envelope 单个 WebSocket 帧
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload error 事件负载，Event 为触发错误的客户端事件
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// AuthenticatedPayload authenticated 事件负载
type AuthenticatedPayload struct {
	UserId string `json:"userId"`
}

// ChannelPayload joined / left 事件负载
type ChannelPayload struct {
	ChannelId string `json:"channelId"`
}

// Encode 将事件名与负载编码为一帧
func Encode(name string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return json.Marshal(Envelope{Event: name, Data: data})
}

// Decode 解析一帧
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return env, fmt.Errorf("decode envelope: missing event name")
	}
	return env, nil
}
