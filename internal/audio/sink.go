package audio

import "errors"

// ErrSinkClosed 在已关闭的输出端上创建播放源时返回。
var ErrSinkClosed = errors.New("输出设备已关闭")

// Sink 是一个音频输出端。每个 tag 独占一个 Sink，生命周期覆盖该 tag 的所有语音。
type Sink interface {
	// Open 用样本创建一个经由 gain 输出的播放源，尚未开始播放。
	Open(samples []float32, gain *Gain) (Source, error)

	// Close 释放输出端资源。
	Close() error
}

// Source 是一段缓冲的播放句柄。
type Source interface {
	// Start 开始播放。
	Start() error

	// Disconnect 立即断开播放源。断开后 Ended 不会再送出任何值。
	// 可重复调用。
	Disconnect()

	// Ended 在播放自然结束时送出 nil，设备出错时送出错误，最多送出一次。
	Ended() <-chan error
}

// SinkFactory 为新的 tag 分配输出端。
type SinkFactory func() (Sink, error)
