package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/iabetor/samspeech/internal/audio"
	"github.com/iabetor/samspeech/internal/logger"
)

// SamEngine 调用 SAM (Software Automatic Mouth) 命令行程序合成语音，
// 四个嗓音参数原样传给 sam。
type SamEngine struct {
	binary string
}

// NewSamEngine 创建 SAM 引擎。binary 为空时使用 PATH 中的 "sam"。
func NewSamEngine(binary string) *SamEngine {
	if binary == "" {
		binary = "sam"
	}
	return &SamEngine{binary: binary}
}

// samArgs 构造 sam 命令行参数。
func samArgs(wavPath, text string, p Params) []string {
	return []string{
		"-wav", wavPath,
		"-speed", strconv.Itoa(p.Speed),
		"-pitch", strconv.Itoa(p.Pitch),
		"-throat", strconv.Itoa(p.Throat),
		"-mouth", strconv.Itoa(p.Mouth),
		text,
	}
}

// Synthesize 运行 sam 输出 WAV 文件，再解码为 22050 Hz float32 样本。
func (s *SamEngine) Synthesize(ctx context.Context, text string, p Params) ([]float32, error) {
	logger.Debugf("[tts] sam: 正在合成 %d 个字符 (speed=%d pitch=%d throat=%d mouth=%d)",
		len([]rune(text)), p.Speed, p.Pitch, p.Throat, p.Mouth)

	tmpFile, err := os.CreateTemp("", "samspeech-*.wav")
	if err != nil {
		return nil, fmt.Errorf("[tts] sam: 创建临时文件失败: %w", err)
	}
	wavPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(wavPath)

	cmd := exec.CommandContext(ctx, s.binary, samArgs(wavPath, text, p)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("[tts] sam 执行失败: %w, stderr: %s", err, stderr.String())
	}

	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("[tts] sam: 读取输出文件失败: %w", err)
	}

	samples, rate, err := decodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("[tts] sam: %w", err)
	}

	samples = audio.Resample(samples, rate, SampleRate)
	logger.Debugf("[tts] sam: 生成 %d 个单声道 float32 样本", len(samples))
	return samples, nil
}
