package tts

import (
	"encoding/binary"
	"fmt"

	"github.com/iabetor/samspeech/internal/audio"
)

// decodeWAV 解析 PCM WAV 文件，返回单声道 float32 样本和采样率。
// 支持 8-bit 无符号与 16-bit 有符号，多声道取第一个声道。
func decodeWAV(data []byte) ([]float32, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("不是有效的 WAV 文件")
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		pcm           []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + chunkSize
		if end > len(data) {
			// 有些编码器写的 data 长度不准，截到文件末尾
			end = len(data)
		}

		switch chunkID {
		case "fmt ":
			if end-body < 16 {
				return nil, 0, fmt.Errorf("WAV fmt 块过短")
			}
			if format := binary.LittleEndian.Uint16(data[body:]); format != 1 {
				return nil, 0, fmt.Errorf("不支持的 WAV 编码: %d", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			pcm = data[body:end]
		}

		pos = end
		if pos%2 != 0 {
			pos++
		}
	}

	if sampleRate == 0 || channels == 0 {
		return nil, 0, fmt.Errorf("WAV 缺少 fmt 块")
	}
	if len(pcm) == 0 {
		return nil, 0, ErrEmptyAudio
	}

	var samples []float32
	switch bitsPerSample {
	case 8:
		samples = audio.Uint8ToFloat32(pcm)
	case 16:
		samples = audio.BytesToFloat32(pcm)
	default:
		return nil, 0, fmt.Errorf("不支持的位深: %d", bitsPerSample)
	}

	if channels > 1 {
		mono := make([]float32, len(samples)/channels)
		for i := range mono {
			mono[i] = samples[i*channels]
		}
		samples = mono
	}
	return samples, sampleRate, nil
}
