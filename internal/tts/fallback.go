package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/iabetor/samspeech/internal/logger"
)

// Fallback 先尝试主引擎，失败后改用备用引擎（网络失败时常用）。
type Fallback struct {
	Primary   Engine
	Secondary Engine
}

// Synthesize 实现 Engine。ctx 取消时不再尝试备用引擎。
func (f *Fallback) Synthesize(ctx context.Context, text string, p Params) ([]float32, error) {
	samples, err := f.Primary.Synthesize(ctx, text, p)
	if err == nil {
		return samples, nil
	}
	if f.Secondary == nil || ctx.Err() != nil {
		return nil, err
	}

	logger.Warnf("[tts] 主引擎合成失败，改用备用引擎: %v", err)
	samples, fbErr := f.Secondary.Synthesize(ctx, text, p)
	if fbErr != nil {
		return nil, fmt.Errorf("备用引擎也失败: %w", errors.Join(err, fbErr))
	}
	return samples, nil
}
