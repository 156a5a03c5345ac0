package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/iabetor/samspeech/internal/logger"
)

// MalgoConfig 是 malgo 播放设备参数。
type MalgoConfig struct {
	PeriodSizeInFrames uint32
	Periods            uint32
}

// MalgoSink 使用 malgo (miniaudio) 的播放设备实现 Sink。
// 每个 MalgoSink 持有一个独立的 miniaudio 上下文，每段语音创建一个设备。
type MalgoSink struct {
	ctx    *malgo.AllocatedContext
	cfg    MalgoConfig
	mu     sync.Mutex
	closed bool
}

// NewMalgoSink 创建 malgo 输出端。
func NewMalgoSink(cfg MalgoConfig) (*MalgoSink, error) {
	if cfg.PeriodSizeInFrames == 0 {
		cfg.PeriodSizeInFrames = 512
	}
	if cfg.Periods == 0 {
		cfg.Periods = 2
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("初始化播放上下文失败: %w", err)
	}

	return &MalgoSink{ctx: ctx, cfg: cfg}, nil
}

// MalgoFactory 返回按 cfg 创建 MalgoSink 的 SinkFactory。
func MalgoFactory(cfg MalgoConfig) SinkFactory {
	return func() (Sink, error) {
		return NewMalgoSink(cfg)
	}
}

// Open 创建播放源。
func (s *MalgoSink) Open(samples []float32, gain *Gain) (Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSinkClosed
	}
	return &malgoSource{
		sink:    s,
		samples: samples,
		gain:    gain,
		drained: make(chan struct{}, 1),
		stopped: make(chan struct{}, 1),
		ended:   make(chan error, 1),
		quit:    make(chan struct{}),
	}, nil
}

// Close 释放 miniaudio 上下文。
func (s *MalgoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.ctx != nil {
		err := s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
		return err
	}
	return nil
}

type malgoSource struct {
	sink    *MalgoSink
	samples []float32
	gain    *Gain
	pos     int

	mu       sync.Mutex
	device   *malgo.Device
	released bool

	drained chan struct{} // 数据回调写完所有样本
	stopped chan struct{} // 设备被系统停止（拔出等）
	ended   chan error
	quit    chan struct{}
	once    sync.Once
}

func (m *malgoSource) Ended() <-chan error { return m.ended }

func (m *malgoSource) Start() error {
	m.sink.mu.Lock()
	if m.sink.closed {
		m.sink.mu.Unlock()
		return ErrSinkClosed
	}
	actx := m.sink.ctx
	m.sink.mu.Unlock()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = SampleRate
	deviceConfig.PeriodSizeInFrames = m.sink.cfg.PeriodSizeInFrames
	deviceConfig.Periods = m.sink.cfg.Periods

	callbacks := malgo.DeviceCallbacks{
		Data: m.fill,
		Stop: func() {
			select {
			case m.stopped <- struct{}{}:
			default:
			}
		},
	}

	device, err := malgo.InitDevice(actx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("初始化播放设备失败: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("启动播放设备失败: %w", err)
	}

	m.mu.Lock()
	if m.released {
		// 启动过程中已被断开
		m.mu.Unlock()
		_ = device.Stop()
		device.Uninit()
		return nil
	}
	m.device = device
	m.mu.Unlock()

	go m.await()
	return nil
}

// fill 在 miniaudio 的音频线程中调用。
// 最后一段采样交给设备后，要到下一次回调才发出 drained。
func (m *malgoSource) fill(out, _ []byte, frameCount uint32) {
	bytesNeeded := int(frameCount) * 2
	if bytesNeeded > len(out) {
		bytesNeeded = len(out)
	}
	if m.pos >= len(m.samples) {
		for i := 0; i < bytesNeeded; i++ {
			out[i] = 0
		}
		select {
		case m.drained <- struct{}{}:
		default:
		}
		return
	}

	n := PutFloat32(out[:bytesNeeded], m.samples[m.pos:], float32(m.gain.Value()))
	m.pos += n
	for i := n * 2; i < bytesNeeded; i++ {
		out[i] = 0
	}
}

func (m *malgoSource) await() {
	select {
	case <-m.quit:
		return
	case <-m.drained:
		m.release()
		m.finish(nil)
	case <-m.stopped:
		// Stop 回调也可能由 Disconnect 触发，这里以 quit 为准
		select {
		case <-m.quit:
			return
		default:
		}
		m.release()
		m.finish(errors.New("播放设备意外停止"))
	}
}

func (m *malgoSource) finish(err error) {
	m.once.Do(func() {
		select {
		case <-m.quit:
		default:
			m.ended <- err
		}
	})
}

func (m *malgoSource) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released || m.device == nil {
		m.released = true
		return
	}
	m.released = true
	_ = m.device.Stop()
	m.device.Uninit()
}

func (m *malgoSource) Disconnect() {
	m.once.Do(func() {
		close(m.quit)
	})
	m.release()
	logger.Debug("[audio] 播放源已断开")
}
