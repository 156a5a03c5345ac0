package tts

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

var sentenceEnds = map[rune]bool{
	'。': true, '！': true, '？': true, '；': true,
	'.': true, '!': true, '?': true, ';': true, '\n': true,
}

// cutSentence 在第一个句末标点之后切开文本。
func cutSentence(text string) (head, tail string, ok bool) {
	for i, r := range text {
		if sentenceEnds[r] {
			at := i + utf8.RuneLen(r)
			return text[:at], text[at:], true
		}
	}
	return "", text, false
}

// chunkText 按句子把文本拼成若干段，每段不超过 maxRunes 个字符。
// 单句超长时原样成段，由引擎自行处理。
func chunkText(text string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = 100
	}

	var (
		chunks []string
		buf    strings.Builder
		n      int
	)
	push := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		size := utf8.RuneCountInString(s)
		if n > 0 && n+size > maxRunes {
			chunks = append(chunks, buf.String())
			buf.Reset()
			n = 0
		}
		if n > 0 {
			buf.WriteByte(' ')
			n++
		}
		buf.WriteString(s)
		n += size
	}

	rest := text
	for {
		head, tail, ok := cutSentence(rest)
		if !ok {
			push(rest)
			break
		}
		push(head)
		rest = tail
	}
	if n > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// Chunked 把长文本分段交给底层引擎，再按顺序拼接样本。
// 用于单次请求有长度上限的云端引擎。
type Chunked struct {
	Engine   Engine
	MaxRunes int
}

// Synthesize 实现 Engine。
func (c *Chunked) Synthesize(ctx context.Context, text string, p Params) ([]float32, error) {
	chunks := chunkText(text, c.MaxRunes)
	if len(chunks) <= 1 {
		return c.Engine.Synthesize(ctx, text, p)
	}

	var out []float32
	for i, chunk := range chunks {
		samples, err := c.Engine.Synthesize(ctx, chunk, p)
		if err != nil {
			return nil, fmt.Errorf("第 %d/%d 段合成失败: %w", i+1, len(chunks), err)
		}
		out = append(out, samples...)
	}
	return out, nil
}
