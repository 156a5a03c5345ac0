package speech

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/iabetor/samspeech/internal/audio"
	"github.com/iabetor/samspeech/internal/logger"
)

// VoiceContext 是一个 tag 独占的输出链路：设备、增益和当前会话。
// 同一 tag 的所有语音复用同一个 VoiceContext。
type VoiceContext struct {
	tag  string
	sink audio.Sink
	gain *audio.Gain

	// playMu 串行化同一 tag 的 PlaySpeech。
	playMu sync.Mutex

	mu     sync.Mutex
	active *Session
}

// Tag 返回所属 tag。
func (vc *VoiceContext) Tag() string { return vc.tag }

// Gain 返回该 tag 的增益级。
func (vc *VoiceContext) Gain() *audio.Gain { return vc.gain }

// Active 返回当前会话，没有时返回 nil。
func (vc *VoiceContext) Active() *Session {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.active
}

func (vc *VoiceContext) setActive(s *Session) {
	vc.mu.Lock()
	vc.active = s
	vc.mu.Unlock()
}

// clearActive 仅当 s 仍是当前会话时清空槽位。
func (vc *VoiceContext) clearActive(s *Session) {
	vc.mu.Lock()
	if vc.active == s {
		vc.active = nil
	}
	vc.mu.Unlock()
}

// Registry 按 tag 管理 VoiceContext，首次使用时创建，之后一直保留。
type Registry struct {
	mu       sync.Mutex
	contexts map[string]*VoiceContext
	newSink  audio.SinkFactory
	closed   bool
}

// NewRegistry 创建注册表，newSink 为每个新 tag 分配输出设备。
func NewRegistry(newSink audio.SinkFactory) *Registry {
	return &Registry{
		contexts: make(map[string]*VoiceContext),
		newSink:  newSink,
	}
}

// Resolve 返回 tag 的 VoiceContext，不存在时创建（增益为 1.0）。
// 输出设备在锁外分配，慢速的设备初始化不会阻塞其他 tag 的 Get/ForEach。
func (r *Registry) Resolve(tag string) (*VoiceContext, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if vc, ok := r.contexts[tag]; ok {
		r.mu.Unlock()
		return vc, nil
	}
	r.mu.Unlock()

	sink, err := r.newSink()
	if err != nil {
		return nil, fmt.Errorf("为 tag %q 分配输出设备失败: %w", tag, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		sink.Close()
		return nil, ErrClosed
	}
	// 并发 Resolve 同一 tag 时先插入者胜出，多分配的设备立即释放
	if vc, ok := r.contexts[tag]; ok {
		sink.Close()
		return vc, nil
	}

	vc := &VoiceContext{
		tag:  tag,
		sink: sink,
		gain: audio.NewGain(),
	}
	r.contexts[tag] = vc
	logger.Debugf("[speech] 新建 VoiceContext: tag=%q", tag)
	return vc, nil
}

// Get 返回已存在的 VoiceContext，不会创建。
func (r *Registry) Get(tag string) (*VoiceContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vc, ok := r.contexts[tag]
	return vc, ok
}

// ForEach 对每个 VoiceContext 调用 fn。fn 在锁外执行。
func (r *Registry) ForEach(fn func(tag string, vc *VoiceContext)) {
	r.mu.Lock()
	list := make([]*VoiceContext, 0, len(r.contexts))
	for _, vc := range r.contexts {
		list = append(list, vc)
	}
	r.mu.Unlock()

	for _, vc := range list {
		fn(vc.tag, vc)
	}
}

// Tags 返回排序后的全部 tag。
func (r *Registry) Tags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	tags := make([]string, 0, len(r.contexts))
	for tag := range r.contexts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Len 返回 VoiceContext 数量。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}

// Close 释放全部输出设备。之后 Resolve 返回 ErrClosed。
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for tag, vc := range r.contexts {
		if err := vc.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭 tag %q 的输出设备: %w", tag, err))
		}
	}
	return errors.Join(errs...)
}
