package audio

import (
	"math"
	"sync/atomic"
)

// MaxGain 是线性增益上限（约 +20 dB）。
const MaxGain = 10.0

func clamp(x, lo, hi float64) float64 {
	return math.Max(math.Min(x, hi), lo)
}

// DBToLinear 将分贝衰减值转换为线性增益，结果钳位在 [0, MaxGain]。
// NaN 和 ±Inf 按 0 dB 处理，即单位增益。
func DBToLinear(db float64) float64 {
	if math.IsNaN(db) || math.IsInf(db, 0) {
		db = 0
	}
	return clamp(math.Pow(10, db/20), 0, MaxGain)
}

// LinearToDB 将线性增益转换为分贝。
// 输入先钳位到 [0, MaxGain]，因此超过 +20 dB 的值不会还原，0 返回 -Inf。
func LinearToDB(gain float64) float64 {
	return 20 * math.Log10(clamp(gain, 0, MaxGain))
}

// Gain 是挂在播放源与输出设备之间的增益级，可在播放过程中被并发读写。
type Gain struct {
	bits atomic.Uint64
}

// NewGain 创建初始为单位增益的增益级。
func NewGain() *Gain {
	g := &Gain{}
	g.Set(1)
	return g
}

// Set 设置线性增益值。
func (g *Gain) Set(linear float64) {
	g.bits.Store(math.Float64bits(clamp(linear, 0, MaxGain)))
}

// SetDB 按分贝设置增益。
func (g *Gain) SetDB(db float64) {
	g.Set(DBToLinear(db))
}

// Value 返回当前线性增益。
func (g *Gain) Value() float64 {
	return math.Float64frombits(g.bits.Load())
}

// DB 返回当前增益对应的分贝值。
func (g *Gain) DB() float64 {
	return LinearToDB(g.Value())
}

// Apply 返回按当前增益缩放并截幅后的副本。
func (g *Gain) Apply(samples []float32) []float32 {
	v := float32(g.Value())
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(clamp(float64(s*v), -1, 1))
	}
	return out
}
