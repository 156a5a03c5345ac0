// Package app 把配置、合成引擎、输出设备、角色库和语音控制器组装在一起。
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/iabetor/samspeech/internal/audio"
	"github.com/iabetor/samspeech/internal/config"
	"github.com/iabetor/samspeech/internal/database"
	"github.com/iabetor/samspeech/internal/logger"
	"github.com/iabetor/samspeech/internal/speech"
	"github.com/iabetor/samspeech/internal/tts"
	"github.com/iabetor/samspeech/internal/voice"
)

// App 持有一个完整可用的语音播放环境。
type App struct {
	cfg *config.Config
	db  *database.DB

	Engine     tts.Engine
	Controller *speech.Controller
	Monitor    *speech.Monitor
	Catalog    *voice.Catalog
	Defaults   *voice.Defaults

	closers   []func()
	closeOnce sync.Once
}

type options struct {
	sinks  audio.SinkFactory
	engine tts.Engine
}

// Option 调整 New 的组装方式。
type Option func(*options)

// WithSinkFactory 替换默认的 malgo 输出设备。
func WithSinkFactory(f audio.SinkFactory) Option {
	return func(o *options) { o.sinks = f }
}

// WithEngine 直接使用给定引擎，忽略 tts 配置。
func WithEngine(e tts.Engine) Option {
	return func(o *options) { o.engine = e }
}

// New 根据配置创建 App。
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg}

	if o.engine != nil {
		a.Engine = o.engine
	} else {
		engine, closers, err := buildEngine(cfg.TTS)
		if err != nil {
			return nil, err
		}
		a.Engine = engine
		a.closers = closers
	}

	// 角色库（可选，失败时只能使用内置角色）
	var store *voice.Store
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Warnf("[app] 打开角色数据库失败，仅使用内置角色: %v", err)
	} else if err := db.Migrate(); err != nil {
		logger.Warnf("[app] 角色数据库迁移失败，仅使用内置角色: %v", err)
		db.Close()
	} else {
		a.db = db
		store = voice.NewStore(db)
	}
	a.Catalog = voice.NewCatalog(store)

	params := tts.Params{
		Speed:  cfg.Voice.Speed,
		Pitch:  cfg.Voice.Pitch,
		Throat: cfg.Voice.Throat,
		Mouth:  cfg.Voice.Mouth,
	}
	if cfg.Voice.Character != "" {
		ch, err := a.Catalog.Lookup(cfg.Voice.Character)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("默认角色无效: %w", err)
		}
		params = ch.Params
	}
	a.Defaults = voice.NewDefaults(params, cfg.Voice.VolumeDB)

	sinks := o.sinks
	if sinks == nil {
		sinks = audio.MalgoFactory(audio.MalgoConfig{
			PeriodSizeInFrames: uint32(cfg.Audio.PeriodSize),
			Periods:            uint32(cfg.Audio.Periods),
		})
	}

	bus := speech.NewBus()
	a.Monitor = speech.NewMonitor(bus)
	a.Controller = speech.NewController(a.Engine, speech.NewRegistry(sinks), bus, speech.Options{
		GracePeriod: cfg.Audio.GracePeriod(),
	})

	logger.Infof("[app] 初始化完成 (speed=%d pitch=%d throat=%d mouth=%d volume=%.1fdB)",
		params.Speed, params.Pitch, params.Throat, params.Mouth, cfg.Voice.VolumeDB)
	return a, nil
}

// Play 以全局参数和音量在 tag 上朗读 text。
func (a *App) Play(ctx context.Context, tag, text string) error {
	return a.Controller.PlaySpeech(ctx, speech.Request{
		Text:     text,
		Params:   a.Defaults.Params(),
		VolumeDB: a.Defaults.Volume(),
		Tag:      tag,
	})
}

// PlayAs 以角色的嗓音参数和全局音量在 tag 上朗读 text。
func (a *App) PlayAs(ctx context.Context, character, tag, text string) error {
	ch, err := a.Catalog.Lookup(character)
	if err != nil {
		return err
	}
	return a.Controller.PlaySpeech(ctx, speech.Request{
		Text:     text,
		Params:   ch.Params,
		VolumeDB: a.Defaults.Volume(),
		Tag:      tag,
	})
}

// Close 停止所有语音并释放资源。可重复调用。
func (a *App) Close() {
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	logger.Info("[app] 正在关闭...")

	if a.Controller != nil {
		if err := a.Controller.Close(); err != nil {
			logger.Warnf("[app] 释放输出设备失败: %v", err)
		}
	}
	if a.Monitor != nil {
		a.Monitor.Close()
	}
	for _, c := range a.closers {
		c()
	}
	if a.db != nil {
		a.db.Close()
	}

	logger.Info("[app] 已关闭")
}
