package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/iabetor/samspeech/internal/logger"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tctts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"
)

// TencentEngine 使用腾讯云 TTS 实现语音合成。Speed 参数映射为腾讯云语速。
type TencentEngine struct {
	client    *tctts.Client
	voiceType int64
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string
	SecretKey string
	VoiceType int64
	Region    string
}

// NewTencentEngine 创建腾讯云 TTS 引擎。
func NewTencentEngine(cfg TencentConfig) (*TencentEngine, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("[tts] 腾讯云 TTS 需要 SecretID 和 SecretKey")
	}
	if cfg.VoiceType == 0 {
		cfg.VoiceType = 1001
	}
	if cfg.Region == "" {
		cfg.Region = "ap-guangzhou"
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tctts.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建腾讯云 TTS 客户端失败: %w", err)
	}

	logger.Infof("[tts] 腾讯云 TTS 引擎已初始化 (voice=%d, region=%s)", cfg.VoiceType, cfg.Region)
	return &TencentEngine{client: client, voiceType: cfg.VoiceType}, nil
}

// tencentSpeed 把 SAM speed 换算为腾讯云语速档位 [-2, 6]，0 为正常语速。
// 腾讯云档位与倍率大致线性：-2=0.6x, 0=1x, 2=1.5x, 6=2.5x。
func tencentSpeed(samSpeed int) float64 {
	rate := 1 / tempoScale(samSpeed)
	var level float64
	if rate < 1 {
		level = (rate - 1) / 0.2
	} else {
		level = (rate - 1) / 0.25
	}
	level = math.Round(level*10) / 10
	return math.Max(-2, math.Min(6, level))
}

// Synthesize 将文本合成为 22050 Hz 单声道 float32 音频样本。
// 腾讯云返回 Base64 编码的 MP3。
func (e *TencentEngine) Synthesize(ctx context.Context, text string, p Params) ([]float32, error) {
	speed := tencentSpeed(p.Speed)
	logger.Debugf("[tts] 腾讯云 TTS: 正在合成 %d 个字符，音色=%d 语速=%.1f", len([]rune(text)), e.voiceType, speed)

	request := tctts.NewTextToVoiceRequest()
	request.Text = common.StringPtr(text)
	request.SessionId = common.StringPtr("samspeech")
	request.VoiceType = common.Int64Ptr(e.voiceType)
	request.Codec = common.StringPtr("mp3")
	request.Speed = common.Float64Ptr(speed)
	request.Volume = common.Float64Ptr(0)

	response, err := e.client.TextToVoiceWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("[tts] 腾讯云 TTS 合成失败: %w", err)
	}
	if response.Response == nil || response.Response.Audio == nil {
		return nil, fmt.Errorf("[tts] 腾讯云 TTS: %w", ErrEmptyAudio)
	}

	mp3Data, err := base64.StdEncoding.DecodeString(*response.Response.Audio)
	if err != nil {
		return nil, fmt.Errorf("[tts] Base64 解码失败: %w", err)
	}

	samples, err := decodeMP3(ctx, mp3Data)
	if err != nil {
		return nil, fmt.Errorf("[tts] 腾讯云 TTS: %w", err)
	}
	return samples, nil
}
