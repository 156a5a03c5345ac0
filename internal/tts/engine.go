// Package tts 提供语音合成适配器。所有引擎都输出 22050 Hz 单声道 float32 样本。
package tts

import (
	"context"
	"errors"

	"github.com/iabetor/samspeech/internal/audio"
)

// SampleRate 是所有引擎输出的采样率。
const SampleRate = audio.SampleRate

// ErrEmptyAudio 表示引擎没有返回任何音频数据。
var ErrEmptyAudio = errors.New("未收到音频数据")

// Params 是 SAM 风格的合成参数，取值通常是 0-255 的小正整数。
type Params struct {
	Speed  int
	Pitch  int
	Throat int
	Mouth  int
}

// DefaultParams 是 SAM 的默认嗓音。
var DefaultParams = Params{Speed: 72, Pitch: 64, Throat: 128, Mouth: 128}

// Engine 定义语音合成后端接口。
type Engine interface {
	// Synthesize 将文本转换为 22050 Hz 单声道 float32 样本。
	Synthesize(ctx context.Context, text string, p Params) ([]float32, error)
}

// EngineFunc 让普通函数实现 Engine。
type EngineFunc func(ctx context.Context, text string, p Params) ([]float32, error)

// Synthesize 调用 f。
func (f EngineFunc) Synthesize(ctx context.Context, text string, p Params) ([]float32, error) {
	return f(ctx, text, p)
}

// tempoScale 返回相对默认语速的时长倍率，>1 表示更慢。
// SAM 的 speed 越大语速越慢，默认 72。
func tempoScale(speed int) float64 {
	if speed <= 0 {
		return 1
	}
	return float64(speed) / float64(DefaultParams.Speed)
}
