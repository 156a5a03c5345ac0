package tts

import (
	"context"
	"fmt"
	"sync"

	"github.com/iabetor/samspeech/internal/audio"
	"github.com/iabetor/samspeech/internal/logger"
	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// SherpaConfig 是 sherpa-onnx VITS 离线合成模型配置。
type SherpaConfig struct {
	Model      string
	Tokens     string
	Lexicon    string
	DataDir    string
	NumThreads int
	SpeakerID  int
}

// SherpaEngine 封装 sherpa-onnx 离线 TTS。Speed 参数映射为生成语速。
type SherpaEngine struct {
	mu  sync.Mutex
	tts *sherpa.OfflineTts
	sid int
}

// NewSherpaEngine 加载 VITS 模型并创建引擎。
func NewSherpaEngine(cfg SherpaConfig) (*SherpaEngine, error) {
	if cfg.Model == "" || cfg.Tokens == "" {
		return nil, fmt.Errorf("[tts] sherpa-onnx 需要 model 和 tokens")
	}
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = 1
	}

	config := sherpa.OfflineTtsConfig{}
	config.Model.Vits.Model = cfg.Model
	config.Model.Vits.Tokens = cfg.Tokens
	config.Model.Vits.Lexicon = cfg.Lexicon
	config.Model.Vits.DataDir = cfg.DataDir
	config.Model.Vits.NoiseScale = 0.667
	config.Model.Vits.NoiseScaleW = 0.8
	config.Model.Vits.LengthScale = 1.0
	config.Model.NumThreads = cfg.NumThreads
	config.Model.Provider = "cpu"
	config.MaxNumSentences = 1

	impl := sherpa.NewOfflineTts(&config)
	if impl == nil {
		return nil, fmt.Errorf("[tts] 创建 sherpa-onnx 合成器失败，模型: %s", cfg.Model)
	}

	logger.Infof("[tts] sherpa-onnx 合成器已创建: model=%s sid=%d", cfg.Model, cfg.SpeakerID)
	return &SherpaEngine{tts: impl, sid: cfg.SpeakerID}, nil
}

// Synthesize 生成音频并重采样到 22050 Hz。
func (e *SherpaEngine) Synthesize(ctx context.Context, text string, p Params) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tts == nil {
		return nil, fmt.Errorf("[tts] sherpa-onnx 合成器已关闭")
	}

	speed := float32(1 / tempoScale(p.Speed))
	generated := e.tts.Generate(text, e.sid, speed)
	if generated == nil || len(generated.Samples) == 0 {
		return nil, fmt.Errorf("[tts] sherpa-onnx: %w", ErrEmptyAudio)
	}

	logger.Debugf("[tts] sherpa-onnx: 生成 %d 个样本，采样率 %d Hz", len(generated.Samples), generated.SampleRate)
	return audio.Resample(generated.Samples, generated.SampleRate, SampleRate), nil
}

// Close 释放底层 sherpa-onnx 资源。
func (e *SherpaEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tts != nil {
		sherpa.DeleteOfflineTts(e.tts)
		e.tts = nil
	}
}
