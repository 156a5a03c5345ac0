package voice

import (
	"sync"

	"github.com/iabetor/samspeech/internal/tts"
)

// Defaults 保存全局嗓音参数和音量，初始值可随时恢复。
type Defaults struct {
	mu sync.RWMutex

	original       tts.Params
	originalVolume float64

	params tts.Params
	volume float64
}

// NewDefaults 以给定参数和音量（dB）作为初始值。
func NewDefaults(p tts.Params, volumeDB float64) *Defaults {
	return &Defaults{
		original:       p,
		originalVolume: volumeDB,
		params:         p,
		volume:         volumeDB,
	}
}

// Params 返回当前全局嗓音参数。
func (d *Defaults) Params() tts.Params {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.params
}

// Volume 返回当前全局音量（dB）。
func (d *Defaults) Volume() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.volume
}

func (d *Defaults) update(fn func()) {
	d.mu.Lock()
	fn()
	d.mu.Unlock()
}

// SetSpeed 设置全局语速。
func (d *Defaults) SetSpeed(v int) { d.update(func() { d.params.Speed = v }) }

// SetPitch 设置全局音高。
func (d *Defaults) SetPitch(v int) { d.update(func() { d.params.Pitch = v }) }

// SetThroat 设置全局喉部参数。
func (d *Defaults) SetThroat(v int) { d.update(func() { d.params.Throat = v }) }

// SetMouth 设置全局口型参数。
func (d *Defaults) SetMouth(v int) { d.update(func() { d.params.Mouth = v }) }

// SetVolume 设置全局音量（dB），0 为原始音量，-10 约为一半响度。
func (d *Defaults) SetVolume(db float64) { d.update(func() { d.volume = db }) }

// ResetVolume 恢复初始音量。
func (d *Defaults) ResetVolume() { d.update(func() { d.volume = d.originalVolume }) }

// ResetAll 恢复全部初始值。
func (d *Defaults) ResetAll() {
	d.update(func() {
		d.params = d.original
		d.volume = d.originalVolume
	})
}
