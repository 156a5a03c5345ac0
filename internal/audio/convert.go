package audio

import (
	"math"
)

// SampleRate 是语音缓冲的固定采样率（单声道）。
const SampleRate = 22050

// Int16ToFloat32 将 PCM int16 样本转换为 [-1.0, 1.0] 范围的 float32。
func Int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / math.MaxInt16
	}
	return out
}

// Float32ToInt16 将 [-1.0, 1.0] 范围的 float32 样本转换为 PCM int16，超出范围的样本被钳位。
func Float32ToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		out[i] = clampSample(s)
	}
	return out
}

func clampSample(s float32) int16 {
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	return int16(s * math.MaxInt16)
}

// Uint8ToFloat32 将 8-bit 无符号 PCM（WAV 8 位格式，128 为静音）转换为 float32。
func Uint8ToFloat32(in []byte) []float32 {
	out := make([]float32, len(in))
	for i, b := range in {
		out[i] = (float32(b) - 128) / 128
	}
	return out
}

// BytesToInt16 将小端字节切片转换为 int16 样本。
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}

// BytesToFloat32 将 16-bit LE PCM 字节直接转换为 float32。
func BytesToFloat32(b []byte) []float32 {
	return Int16ToFloat32(BytesToInt16(b))
}

// PutFloat32 将 float32 样本乘以 gain 后以 16-bit LE 写入 dst，返回写入的样本数。
// dst 不足时只写能容纳的部分。
func PutFloat32(dst []byte, src []float32, gain float32) int {
	n := len(dst) / 2
	if n > len(src) {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		s := clampSample(src[i] * gain)
		dst[2*i] = byte(s)
		dst[2*i+1] = byte(s >> 8)
	}
	return n
}

// StereoInt16ToMono 将 16-bit LE 立体声 PCM 的左右声道取平均，得到 [-1.0, 1.0] 的单声道样本。
// 不完整的尾部帧被丢弃。
func StereoInt16ToMono(data []byte) []float32 {
	const bytesPerFrame = 4
	numFrames := len(data) / bytesPerFrame
	if numFrames == 0 {
		return nil
	}
	samples := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		off := i * bytesPerFrame
		left := int16(data[off]) | int16(data[off+1])<<8
		right := int16(data[off+2]) | int16(data[off+3])<<8
		samples[i] = (float32(left) + float32(right)) / 65536.0
	}
	return samples
}
