package speech

import (
	"sort"
	"sync"

	"github.com/rs/xid"
)

// Monitor 订阅事件总线，记录哪些 tag 正在说话以及最近一次的事件信息。
// 状态随事件派发异步更新。
type Monitor struct {
	bus *Bus
	id  string

	mu         sync.RWMutex
	speaking   map[string]string // tag → 会话 ID
	lastTag    string
	lastError  string
	lastBuffer []float32
}

// NewMonitor 创建 Monitor 并订阅 bus。
func NewMonitor(bus *Bus) *Monitor {
	m := &Monitor{
		bus:      bus,
		id:       "monitor-" + xid.New().String(),
		speaking: make(map[string]string),
	}
	bus.Subscribe(m.id, m.handle)
	return m
}

func (m *Monitor) handle(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e.Type {
	case SpeechStart:
		m.speaking[e.Tag] = e.SessionID
		m.lastTag = e.Tag
		m.lastBuffer = e.Buffer
	case SpeechEnd, SpeechStop, SpeechError:
		if m.speaking[e.Tag] == e.SessionID {
			delete(m.speaking, e.Tag)
		}
		if e.Type == SpeechError {
			m.lastError = e.Message
		}
	}
}

// IsSpeaking 报告 tag 是否正在说话。
func (m *Monitor) IsSpeaking(tag string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.speaking[tag]
	return ok
}

// IsAnySpeaking 报告是否有任意 tag 正在说话。
func (m *Monitor) IsAnySpeaking() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.speaking) > 0
}

// Speaking 返回正在说话的 tag，已排序。
func (m *Monitor) Speaking() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tags := make([]string, 0, len(m.speaking))
	for tag := range m.speaking {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// LastTag 返回最近一次开始说话的 tag。
func (m *Monitor) LastTag() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastTag
}

// LastError 返回最近一次播放错误的信息。
func (m *Monitor) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// LastBuffer 返回最近一次开始播放的音频缓冲。
func (m *Monitor) LastBuffer() []float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastBuffer
}

// Close 取消订阅。
func (m *Monitor) Close() {
	m.bus.Unsubscribe(m.id)
}
