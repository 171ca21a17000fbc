package chat

import (
	"hash/fnv"
	"sync"
)

const sequencerStripes = 64

// sequencer 按频道串行化发送流程，使同一频道的写入顺序与投递顺序一致
type sequencer struct {
	stripes [sequencerStripes]sync.Mutex
}

// lock 锁住频道所在分段，返回解锁函数
func (s *sequencer) lock(channelId string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(channelId))
	mu := &s.stripes[h.Sum32()%sequencerStripes]
	mu.Lock()
	return mu.Unlock
}
