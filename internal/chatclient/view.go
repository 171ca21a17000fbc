// Package chatclient 是实时聊天的客户端：合并历史快照与实时消息，断线后自动重连并重新订阅
package chatclient

import (
	"sort"
	"sync"

	"channel_chat_server/internal/dto/respond"
)

// View 单个频道的本地消息视图
// 同一 ID 只保留一份，按创建时间升序，时间相同按 ID 排序
type View struct {
	mu       sync.RWMutex
	ids      map[string]struct{}
	messages []respond.MessageWithUser
}

func NewView() *View {
	return &View{ids: make(map[string]struct{})}
}

// Merge 插入一条消息，已存在同 ID 时忽略并返回 false
func (v *View) Merge(msg respond.MessageWithUser) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.insert(msg)
}

// LoadSnapshot 合并历史快照，返回新增条数
func (v *View) LoadSnapshot(snapshot []respond.MessageWithUser) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	added := 0
	for _, msg := range snapshot {
		if v.insert(msg) {
			added++
		}
	}
	return added
}

// insert 调用方持有写锁
func (v *View) insert(msg respond.MessageWithUser) bool {
	if _, ok := v.ids[msg.Id]; ok {
		return false
	}
	v.ids[msg.Id] = struct{}{}

	i := sort.Search(len(v.messages), func(i int) bool {
		return before(msg, v.messages[i])
	})
	v.messages = append(v.messages, respond.MessageWithUser{})
	copy(v.messages[i+1:], v.messages[i:])
	v.messages[i] = msg
	return true
}

func before(a, b respond.MessageWithUser) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Id < b.Id
}

// Messages 返回当前视图的副本
func (v *View) Messages() []respond.MessageWithUser {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]respond.MessageWithUser, len(v.messages))
	copy(out, v.messages)
	return out
}

func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.messages)
}
