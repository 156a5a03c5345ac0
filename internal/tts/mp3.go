package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/iabetor/samspeech/internal/audio"
)

// decodeMP3 将 MP3 数据解码为 22050 Hz 单声道 float32 样本。
// go-mp3 始终输出 16-bit LE 立体声 PCM。
func decodeMP3(ctx context.Context, data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("MP3 解码失败: %w", err)
	}

	var pcm bytes.Buffer
	buf := make([]byte, 16384)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := decoder.Read(buf)
		pcm.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取 PCM 数据失败: %w", err)
		}
	}

	samples := audio.StereoInt16ToMono(pcm.Bytes())
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio.Resample(samples, decoder.SampleRate(), SampleRate), nil
}
