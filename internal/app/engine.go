package app

import (
	"fmt"

	"github.com/iabetor/samspeech/internal/config"
	"github.com/iabetor/samspeech/internal/logger"
	"github.com/iabetor/samspeech/internal/tts"
)

// newEngine 按名称创建 TTS 引擎。返回的 closer 用于释放本地模型，可能为 nil。
func newEngine(name string, cfg config.TTSConfig) (tts.Engine, func(), error) {
	switch name {
	case "sam":
		return tts.NewSamEngine(cfg.SAM.Binary), nil, nil
	case "piper":
		if cfg.Piper.ModelPath == "" {
			return nil, nil, fmt.Errorf("piper 需要配置 tts.piper.model_path")
		}
		return tts.NewPiperEngine(cfg.Piper.Binary, cfg.Piper.ModelPath), nil, nil
	case "sherpa":
		e, err := tts.NewSherpaEngine(tts.SherpaConfig{
			Model:      cfg.Sherpa.Model,
			Tokens:     cfg.Sherpa.Tokens,
			Lexicon:    cfg.Sherpa.Lexicon,
			DataDir:    cfg.Sherpa.DataDir,
			NumThreads: cfg.Sherpa.NumThreads,
			SpeakerID:  cfg.Sherpa.SpeakerID,
		})
		if err != nil {
			return nil, nil, err
		}
		return e, e.Close, nil
	case "edge":
		return tts.NewEdgeEngine(cfg.Edge.Voice), nil, nil
	case "tencent":
		e, err := tts.NewTencentEngine(tts.TencentConfig{
			SecretID:  cfg.Tencent.SecretID,
			SecretKey: cfg.Tencent.SecretKey,
			VoiceType: cfg.Tencent.VoiceType,
			Region:    cfg.Tencent.Region,
		})
		if err != nil {
			return nil, nil, err
		}
		// 腾讯云单次请求约 150 字符上限，按 100 字符分段留余量
		return &tts.Chunked{Engine: e, MaxRunes: 100}, nil, nil
	}
	return nil, nil, fmt.Errorf("未知的 TTS 引擎: %s", name)
}

// buildEngine 创建主引擎，并在配置了回退引擎时包装为 tts.Fallback。
// 回退引擎初始化失败只记录警告。
func buildEngine(cfg config.TTSConfig) (tts.Engine, []func(), error) {
	var closers []func()

	primary, closer, err := newEngine(cfg.Engine, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化 TTS 引擎 %s 失败: %w", cfg.Engine, err)
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	logger.Infof("[app] TTS 引擎: %s", cfg.Engine)

	if cfg.Fallback == "" || cfg.Fallback == cfg.Engine {
		return primary, closers, nil
	}

	secondary, closer, err := newEngine(cfg.Fallback, cfg)
	if err != nil {
		logger.Warnf("[app] TTS 回退引擎 %s 不可用: %v", cfg.Fallback, err)
		return primary, closers, nil
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	logger.Infof("[app] 已启用 TTS 回退引擎: %s", cfg.Fallback)
	return &tts.Fallback{Primary: primary, Secondary: secondary}, closers, nil
}
