package tts

import (
	"bytes"
	"context"
	"fmt"

	"github.com/iabetor/samspeech/internal/logger"
	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"
)

// EdgeEngine 使用微软 Edge TTS 实现语音合成，
// 通过 edge-tts-go 获取 MP3 音频，再用 go-mp3 解码为 PCM。
// Edge 没有 SAM 嗓音参数，Params 被忽略。
type EdgeEngine struct {
	voice string
}

// NewEdgeEngine 创建指定语音的 Edge TTS 引擎。
func NewEdgeEngine(voice string) *EdgeEngine {
	return &EdgeEngine{voice: voice}
}

// Synthesize 将文本合成为 22050 Hz 单声道 float32 音频样本。
func (e *EdgeEngine) Synthesize(ctx context.Context, text string, _ Params) ([]float32, error) {
	logger.Debugf("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(text)), e.voice)

	comm, err := edge.NewCommunicate(text, edge.WithVoice(e.voice))
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts 创建实例失败: %w", err)
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts 开始流式合成失败: %w", err)
	}

	var mp3Buf bytes.Buffer
	for msg := range ch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Stream() 返回的 map 中，type=="audio" 的条目包含音频数据
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				mp3Buf.Write(data)
			}
		}
	}

	logger.Debugf("[tts] edge-tts: 收到 %d 字节 MP3 数据", mp3Buf.Len())

	samples, err := decodeMP3(ctx, mp3Buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts: %w", err)
	}
	return samples, nil
}
