// Package speech 按 tag 管理语音播放：同一 tag 同时只播放一段，
// 新语音会打断旧语音，生命周期以事件形式通知宿主。
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iabetor/samspeech/internal/logger"
	"github.com/iabetor/samspeech/internal/tts"
)

// ErrClosed 表示 Controller 或 Registry 已关闭。
var ErrClosed = errors.New("speech: controller closed")

// DefaultGracePeriod 是旧会话释放后、新会话接入同一设备前的等待时间。
const DefaultGracePeriod = 10 * time.Millisecond

// MinGracePeriod 是宽限期的下限，配置更小（含负数）时取该值。
const MinGracePeriod = time.Millisecond

// Request 描述一次播放请求。
type Request struct {
	Text     string
	Params   tts.Params
	VolumeDB float64
	Tag      string
}

// Options 配置 Controller。
type Options struct {
	// GracePeriod 为 0 时使用 DefaultGracePeriod，小于 MinGracePeriod 时取 MinGracePeriod。
	GracePeriod time.Duration
}

// Controller 是播放入口：合成、按 tag 打断旧语音、播放并发布事件。
type Controller struct {
	engine   tts.Engine
	registry *Registry
	bus      *Bus
	grace    time.Duration

	mu      sync.RWMutex
	closed  bool
	watches sync.WaitGroup
}

// NewController 创建 Controller。registry 和 bus 由 Controller 接管，随 Close 一起关闭。
func NewController(engine tts.Engine, registry *Registry, bus *Bus, opts Options) *Controller {
	grace := opts.GracePeriod
	if grace == 0 {
		grace = DefaultGracePeriod
	}
	if grace < MinGracePeriod {
		logger.Warnf("[speech] 宽限期 %v 过小，改用 %v", grace, MinGracePeriod)
		grace = MinGracePeriod
	}
	return &Controller{
		engine:   engine,
		registry: registry,
		bus:      bus,
		grace:    grace,
	}
}

// Bus 返回事件总线。
func (c *Controller) Bus() *Bus { return c.bus }

// Registry 返回 tag 注册表。
func (c *Controller) Registry() *Registry { return c.registry }

// PlaySpeech 合成 req.Text 并在 req.Tag 上播放。
//
// 若该 tag 正在播放，先取消旧会话，等它的 SpeechStop 发布后再等待一个宽限期。
// 发布 SpeechStart 后立即返回，不等待播放结束。合成失败时返回错误且不发布任何事件。
func (c *Controller) PlaySpeech(ctx context.Context, req Request) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	samples, err := c.engine.Synthesize(ctx, req.Text, req.Params)
	if err != nil {
		return fmt.Errorf("合成语音失败: %w", err)
	}

	vc, err := c.registry.Resolve(req.Tag)
	if err != nil {
		return err
	}

	vc.playMu.Lock()
	defer vc.playMu.Unlock()

	if prev := vc.Active(); prev != nil {
		logger.Debugf("[speech] tag=%q 打断会话 %s", req.Tag, prev.ID)
		prev.Cancel()
		if err := c.awaitRelease(ctx, prev); err != nil {
			return err
		}
	}

	vc.gain.SetDB(req.VolumeDB)

	sess := newSession(req.Tag, samples)
	sess.start(vc.sink, vc.gain)
	vc.setActive(sess)

	c.bus.Publish(Event{
		Type:      SpeechStart,
		Tag:       req.Tag,
		SessionID: sess.ID,
		Buffer:    samples,
	})
	logger.Infof("[speech] 开始播放: tag=%q 会话=%s 采样=%d 音量=%.1fdB",
		req.Tag, sess.ID, len(samples), req.VolumeDB)

	c.watches.Add(1)
	go c.watch(vc, sess)
	return nil
}

// awaitRelease 等待旧会话的终止事件发布，再等待宽限期。
func (c *Controller) awaitRelease(ctx context.Context, prev *Session) error {
	select {
	case <-prev.Settled():
	case <-ctx.Done():
		return ctx.Err()
	}

	timer := time.NewTimer(c.grace)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watch 把会话结果翻译为唯一的终止事件，然后清空槽位。
func (c *Controller) watch(vc *VoiceContext, sess *Session) {
	defer c.watches.Done()

	<-sess.Done()
	res := sess.Result()

	log := logger.With("tag", sess.Tag, "session", sess.ID)
	e := Event{Tag: sess.Tag, SessionID: sess.ID}
	switch res.Outcome {
	case OutcomeCompleted:
		e.Type = SpeechEnd
		log.Debug("[speech] 播放完毕")
	case OutcomeCancelled:
		e.Type = SpeechStop
		log.Debug("[speech] 播放停止")
	default:
		e.Type = SpeechError
		e.Message = res.Message
		log.Warnf("[speech] 播放出错: %s", res.Message)
	}
	c.bus.Publish(e)

	vc.clearActive(sess)
	sess.markSettled()
}

// StopSpeech 停止 tag 上正在播放的语音。未知 tag 或空闲 tag 什么也不做。
func (c *Controller) StopSpeech(tag string) {
	vc, ok := c.registry.Get(tag)
	if !ok {
		return
	}
	if sess := vc.Active(); sess != nil {
		sess.Cancel()
	}
}

// StopAllSpeeches 停止所有 tag 上的语音，每个被停止的会话发布一次 SpeechStop。
func (c *Controller) StopAllSpeeches() {
	c.registry.ForEach(func(_ string, vc *VoiceContext) {
		if sess := vc.Active(); sess != nil {
			sess.Cancel()
		}
	})
}

// Close 停止全部语音，等待终止事件发布完毕，然后释放设备并关闭事件总线。
func (c *Controller) Close() error {
	c.StopAllSpeeches()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	// 等待 Close 之前已进入 PlaySpeech 的调用所启动的会话
	c.StopAllSpeeches()
	c.watches.Wait()

	err := c.registry.Close()
	c.bus.Close()
	logger.Infof("[speech] 控制器已关闭")
	return err
}
