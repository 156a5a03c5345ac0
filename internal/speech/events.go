package speech

import (
	"sync"
	"time"

	"github.com/iabetor/samspeech/internal/logger"
	"github.com/rs/xid"
)

// EventType 标识语音生命周期事件。
type EventType string

const (
	SpeechStart EventType = "speech.start"
	SpeechEnd   EventType = "speech.end"
	SpeechStop  EventType = "speech.stop"
	SpeechError EventType = "speech.error"
)

// Event 是发给宿主的语音事件。
type Event struct {
	ID        string
	Type      EventType
	Tag       string
	SessionID string
	// Buffer 只在 SpeechStart 中携带，便于宿主做可视化。调用方不得修改。
	Buffer []float32
	// Message 只在 SpeechError 中非空。
	Message string
	Time    time.Time
}

// Handler 处理事件。Handler 在 Bus 的派发 goroutine 中按发布顺序被调用，
// 可以安全地回调 Controller。
type Handler func(Event)

// Bus 按发布顺序把事件派发给所有订阅者。Publish 从不阻塞。
type Bus struct {
	mu     sync.Mutex
	queue  []Event
	subs   map[string]Handler
	order  []string
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// NewBus 创建事件总线并启动派发 goroutine。
func NewBus() *Bus {
	b := &Bus{
		subs: make(map[string]Handler),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go b.pump()
	return b
}

// Subscribe 以 id 注册处理函数，重复 id 会替换旧的处理函数。
func (b *Bus) Subscribe(id string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.subs[id]; !exists {
		b.order = append(b.order, id)
	}
	b.subs[id] = h
}

// Unsubscribe 移除订阅。
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[id]; !ok {
		return
	}
	delete(b.subs, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Subscribers 按订阅顺序返回当前订阅者 id。
func (b *Bus) Subscribers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}

// Publish 补全事件 ID 和时间后入队。
func (b *Bus) Publish(e Event) Event {
	if e.ID == "" {
		e.ID = xid.New().String()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		logger.Debugf("[speech] 事件总线已关闭，丢弃事件 %s (tag=%s)", e.Type, e.Tag)
		return e
	}
	b.queue = append(b.queue, e)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return e
}

// Close 派发完已入队的事件后停止总线。
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.closed = true
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	<-b.done
}

func (b *Bus) pump() {
	defer close(b.done)
	for range b.wake {
		for {
			b.mu.Lock()
			if len(b.queue) == 0 {
				closed := b.closed
				b.mu.Unlock()
				if closed {
					return
				}
				break
			}
			e := b.queue[0]
			b.queue[0] = Event{}
			b.queue = b.queue[1:]
			handlers := make([]Handler, 0, len(b.order))
			for _, id := range b.order {
				handlers = append(handlers, b.subs[id])
			}
			b.mu.Unlock()

			for _, h := range handlers {
				h(e)
			}
		}
	}
}
