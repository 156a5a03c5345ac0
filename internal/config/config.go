package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是 samspeech 的顶层配置结构。
type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Voice    VoiceConfig    `yaml:"voice"`
	TTS      TTSConfig      `yaml:"tts"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// AudioConfig 音频播放配置。
type AudioConfig struct {
	// PeriodSize 每个设备周期的帧数，0 表示由设备决定。
	PeriodSize int `yaml:"period_size"`
	Periods    int `yaml:"periods"`
	// GracePeriodMs 同一 tag 打断后等待设备释放的毫秒数。0 取默认 10，
	// 负数按 1 毫秒处理，等待不会被关闭。
	GracePeriodMs int `yaml:"grace_period_ms"`
}

// GracePeriod 以 time.Duration 返回宽限期。
func (a AudioConfig) GracePeriod() time.Duration {
	return time.Duration(a.GracePeriodMs) * time.Millisecond
}

// VoiceConfig 全局嗓音参数。
type VoiceConfig struct {
	Speed    int     `yaml:"speed"`
	Pitch    int     `yaml:"pitch"`
	Throat   int     `yaml:"throat"`
	Mouth    int     `yaml:"mouth"`
	VolumeDB float64 `yaml:"volume_db"`
	// Character 非空时以该角色的参数作为默认值。
	Character string `yaml:"character"`
}

// TTSConfig 语音合成配置。
type TTSConfig struct {
	Engine   string        `yaml:"engine"`
	Fallback string        `yaml:"fallback"`
	SAM      SAMConfig     `yaml:"sam"`
	Piper    PiperConfig   `yaml:"piper"`
	Sherpa   SherpaConfig  `yaml:"sherpa"`
	Edge     EdgeConfig    `yaml:"edge"`
	Tencent  TencentConfig `yaml:"tencent"`
}

// SAMConfig SAM 命令行合成器配置。
type SAMConfig struct {
	Binary string `yaml:"binary"`
}

// PiperConfig Piper TTS 配置。
type PiperConfig struct {
	Binary    string `yaml:"binary"`
	ModelPath string `yaml:"model_path"`
}

// SherpaConfig sherpa-onnx 离线 TTS 配置。
type SherpaConfig struct {
	Model      string `yaml:"model"`
	Tokens     string `yaml:"tokens"`
	Lexicon    string `yaml:"lexicon"`
	DataDir    string `yaml:"data_dir"`
	NumThreads int    `yaml:"num_threads"`
	SpeakerID  int    `yaml:"speaker_id"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Voice string `yaml:"voice"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string `yaml:"secret_id"`
	SecretKey string `yaml:"secret_key"`
	VoiceType int64  `yaml:"voice_type"`
	Region    string `yaml:"region"`
}

// DatabaseConfig 角色数据库配置。
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	// 展开环境变量，如 ${SAMSPEECH_TENCENT_SECRET_KEY}
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// Default 返回全部取默认值的配置。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Audio.Periods == 0 {
		cfg.Audio.Periods = 3
	}
	if cfg.Audio.GracePeriodMs == 0 {
		cfg.Audio.GracePeriodMs = 10
	}

	// SAM 默认嗓音
	if cfg.Voice.Speed == 0 {
		cfg.Voice.Speed = 72
	}
	if cfg.Voice.Pitch == 0 {
		cfg.Voice.Pitch = 64
	}
	if cfg.Voice.Throat == 0 {
		cfg.Voice.Throat = 128
	}
	if cfg.Voice.Mouth == 0 {
		cfg.Voice.Mouth = 128
	}

	if cfg.TTS.Engine == "" {
		cfg.TTS.Engine = "sam"
	}
	if cfg.TTS.SAM.Binary == "" {
		cfg.TTS.SAM.Binary = "sam"
	}
	if cfg.TTS.Piper.Binary == "" {
		cfg.TTS.Piper.Binary = "piper"
	}
	if cfg.TTS.Sherpa.NumThreads == 0 {
		cfg.TTS.Sherpa.NumThreads = 2
	}
	if cfg.TTS.Edge.Voice == "" {
		cfg.TTS.Edge.Voice = "en-US-GuyNeural"
	}
	if cfg.TTS.Tencent.Region == "" {
		cfg.TTS.Tencent.Region = "ap-guangzhou"
	}

	if cfg.Database.Path == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Database.Path = home + "/.samspeech/samspeech.db"
		} else {
			cfg.Database.Path = "./.samspeech-data/samspeech.db"
		}
	} else {
		cfg.Database.Path = expandHome(cfg.Database.Path)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	cfg.Log.File = expandHome(cfg.Log.File)

	// 去除密钥两端可能的空白（环境变量展开后常见）
	cfg.TTS.Tencent.SecretID = strings.TrimSpace(cfg.TTS.Tencent.SecretID)
	cfg.TTS.Tencent.SecretKey = strings.TrimSpace(cfg.TTS.Tencent.SecretKey)
}

// expandHome 展开路径开头的 ~/，Go 不会自动处理。
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return path
	}
	return home + path[1:]
}
