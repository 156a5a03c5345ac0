package audio

// Resample 使用线性插值把单声道样本从 from Hz 转换到 to Hz。
// 采样率相同或输入少于两个样本时原样返回。
func Resample(in []float32, from, to int) []float32 {
	if from <= 0 || to <= 0 || from == to || len(in) < 2 {
		return in
	}

	outLen := int(int64(len(in)) * int64(to) / int64(from))
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	ratio := float64(from) / float64(to)
	last := len(in) - 1

	for i := range out {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		if idx >= last {
			out[i] = in[last]
			continue
		}
		frac := float32(srcPos - float64(idx))
		out[i] = in[idx] + frac*(in[idx+1]-in[idx])
	}
	return out
}
