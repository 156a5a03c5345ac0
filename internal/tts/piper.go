package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/iabetor/samspeech/internal/audio"
	"github.com/iabetor/samspeech/internal/logger"
)

// piperSampleRate 是 piper medium 模型输出的采样率。
const piperSampleRate = 22050

// PiperEngine 使用 piper CLI 子进程实现语音合成，作为离线备用方案。
// 只有 Speed 参数生效，映射为 piper 的 --length_scale。
type PiperEngine struct {
	binary    string
	modelPath string
}

// NewPiperEngine 创建指定模型的 Piper TTS 引擎。
func NewPiperEngine(binary, modelPath string) *PiperEngine {
	if binary == "" {
		binary = "piper"
	}
	return &PiperEngine{binary: binary, modelPath: modelPath}
}

func (e *PiperEngine) args(p Params) []string {
	return []string{
		"--model", e.modelPath,
		"--output-raw",
		"--length_scale", strconv.FormatFloat(tempoScale(p.Speed), 'f', 3, 64),
	}
}

// Synthesize 使用 piper CLI 将文本转换为单声道 float32 音频样本。
// piper 输出 signed 16-bit LE 单声道 PCM。
func (e *PiperEngine) Synthesize(ctx context.Context, text string, p Params) ([]float32, error) {
	logger.Debugf("[tts] piper: 正在合成 %d 个字符，模型=%s", len([]rune(text)), e.modelPath)

	cmd := exec.CommandContext(ctx, e.binary, e.args(p)...)
	cmd.Stdin = bytes.NewReader([]byte(text))

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if s := stderr.String(); s != "" {
			logger.Warnf("[tts] piper stderr: %s", s)
		}
		return nil, fmt.Errorf("[tts] piper 执行失败: %w", err)
	}

	pcmData := stdout.Bytes()
	if len(pcmData) == 0 {
		return nil, fmt.Errorf("[tts] piper: %w", ErrEmptyAudio)
	}

	samples := audio.Resample(audio.BytesToFloat32(pcmData), piperSampleRate, SampleRate)
	logger.Debugf("[tts] piper: 生成 %d 个单声道 float32 样本", len(samples))
	return samples, nil
}
