package chat

import (
	"fmt"
	"sort"
	"sync"

	"channel_chat_server/pkg/errorx"
)

type session struct {
	conn     Conn
	userId   string
	channels map[string]struct{}
}

// Registry 连接注册表
// 维护 频道 -> 订阅连接、用户 -> 连接、连接 -> 会话 三张表，所有访问都经过 mu
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	channels map[string]map[string]Conn
	users    map[string]map[string]Conn
}

// Stats 注册表快照统计
type Stats struct {
	Connections   int `json:"connections"`
	Users         int `json:"users"`
	Channels      int `json:"channels"`
	Subscriptions int `json:"subscriptions"`
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		channels: make(map[string]map[string]Conn),
		users:    make(map[string]map[string]Conn),
	}
}

// Register 连接建立时登记
func (r *Registry) Register(conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[conn.ID()]; ok {
		return fmt.Errorf("connection %s already registered", conn.ID())
	}
	r.sessions[conn.ID()] = &session{conn: conn, channels: make(map[string]struct{})}
	return nil
}

// Authenticate 绑定连接与用户，同一用户重复调用幂等，绑定其他用户返回 ErrAlreadyBound
func (r *Registry) Authenticate(connId, userId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connId]
	if !ok {
		return ErrConnClosed
	}
	if s.userId == userId {
		return nil
	}
	if s.userId != "" {
		return errorx.ErrAlreadyBound
	}
	s.userId = userId
	conns, ok := r.users[userId]
	if !ok {
		conns = make(map[string]Conn)
		r.users[userId] = conns
	}
	conns[connId] = s.conn
	return nil
}

// UserOf 返回连接已认证的用户
func (r *Registry) UserOf(connId string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connId]
	if !ok || s.userId == "" {
		return "", false
	}
	return s.userId, true
}

// Join 订阅频道，调用方需先确认频道存在
// 重复加入返回 false，连接已断开返回 ErrConnClosed
func (r *Registry) Join(connId, channelId string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connId]
	if !ok {
		return false, ErrConnClosed
	}
	if _, ok := s.channels[channelId]; ok {
		return false, nil
	}
	s.channels[channelId] = struct{}{}
	subs, ok := r.channels[channelId]
	if !ok {
		subs = make(map[string]Conn)
		r.channels[channelId] = subs
	}
	subs[connId] = s.conn
	return true, nil
}

// Leave 取消单个频道订阅，返回是否确实移除
func (r *Registry) Leave(connId, channelId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connId]
	if !ok {
		return false
	}
	if _, ok := s.channels[channelId]; !ok {
		return false
	}
	delete(s.channels, channelId)
	r.unsubscribe(connId, channelId)
	return true
}

// Disconnect 移除连接的全部订阅与用户绑定，返回其曾订阅的频道
// 连接未登记时返回 nil，可重复调用，返回后该连接 ID 的 Join/Authenticate 都会失败
func (r *Registry) Disconnect(connId string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connId]
	if !ok {
		return nil
	}
	delete(r.sessions, connId)

	channels := make([]string, 0, len(s.channels))
	for channelId := range s.channels {
		r.unsubscribe(connId, channelId)
		channels = append(channels, channelId)
	}
	if s.userId != "" {
		if conns, ok := r.users[s.userId]; ok {
			delete(conns, connId)
			if len(conns) == 0 {
				delete(r.users, s.userId)
			}
		}
	}
	sort.Strings(channels)
	return channels
}

// unsubscribe 调用方持有写锁
func (r *Registry) unsubscribe(connId, channelId string) {
	subs, ok := r.channels[channelId]
	if !ok {
		return
	}
	delete(subs, connId)
	if len(subs) == 0 {
		delete(r.channels, channelId)
	}
}

// Subscribers 返回频道当前订阅者的快照
func (r *Registry) Subscribers(channelId string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.channels[channelId]
	out := make([]Conn, 0, len(subs))
	for _, conn := range subs {
		out = append(out, conn)
	}
	return out
}

// ConnsOfUser 返回用户的全部在线连接
func (r *Registry) ConnsOfUser(userId string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.users[userId]
	out := make([]Conn, 0, len(conns))
	for _, conn := range conns {
		out = append(out, conn)
	}
	return out
}

// Channels 返回连接已订阅的频道，按 ID 排序
func (r *Registry) Channels(connId string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connId]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s.channels))
	for channelId := range s.channels {
		out = append(out, channelId)
	}
	sort.Strings(out)
	return out
}

// AllConns 返回全部已登记连接，关闭服务时使用
func (r *Registry) AllConns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conn, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.conn)
	}
	return out
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := Stats{
		Connections: len(r.sessions),
		Users:       len(r.users),
		Channels:    len(r.channels),
	}
	for _, subs := range r.channels {
		stats.Subscriptions += len(subs)
	}
	return stats
}
