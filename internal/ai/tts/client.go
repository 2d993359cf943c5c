// Package tts defines the speech synthesis capability and its vendor adapters.
package tts

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode"

	"vocata/internal/ai/dto"
	"vocata/internal/ai/streams"

	"github.com/cloudwego/eino/schema"
)

// 面向用户的合成提示
const (
	MsgSynthesizeFailed = "语音合成失败，请重试"
	MsgUnavailable      = "语音合成服务暂不可用"
)

var (
	ErrNotConfigured = errors.New("speech synthesis provider is not configured")
	ErrSynthesize    = errors.New("speech synthesis failed")
	ErrEmptyText     = errors.New("text to synthesize is empty")
)

// Client 语音合成能力。实现必须无状态、可并发调用。
type Client interface {
	Name() string
	Available() bool
	// StreamSynthesize 逐段消费文本，每段文本到达后立即合成并输出音频分片
	StreamSynthesize(ctx context.Context, text *schema.StreamReader[string], cfg dto.TtsConfig) (*schema.StreamReader[*dto.AudioChunk], error)
	Synthesize(ctx context.Context, text string, cfg dto.TtsConfig) (*dto.TtsResult, error)
	SupportedVoices() []string
	EstimateAudioDuration(text string) float64
}

type synthesizeFunc func(ctx context.Context, text string, cfg dto.TtsConfig) (*dto.TtsResult, error)

// streamBySegment 串行合成每个到达的文本段，保证音频顺序与文本顺序一致。
// 合成失败时流以 ErrSynthesize 结束，不再消费后续文本。
func streamBySegment(ctx context.Context, text *schema.StreamReader[string], cfg dto.TtsConfig, synth synthesizeFunc) *schema.StreamReader[*dto.AudioChunk] {
	sr, sw := schema.Pipe[*dto.AudioChunk](4)
	go func() {
		defer sw.Close()
		defer text.Close()

		seq := 0
		for {
			segment, err := streams.Recv(ctx, text)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				sw.Send(nil, err)
				return
			}
			if strings.TrimSpace(segment) == "" {
				continue
			}

			res, err := synth(ctx, segment, cfg)
			if err != nil {
				sw.Send(nil, err)
				return
			}
			chunk := &dto.AudioChunk{
				Data:        res.AudioData,
				Format:      res.AudioFormat,
				SampleRate:  res.SampleRate,
				Sequence:    seq,
				SegmentText: segment,
			}
			seq++
			if closed := sw.Send(chunk, nil); closed {
				return
			}
		}
	}()
	return sr
}

// speakingDuration 中文约每秒 3 字，其他字符约每秒 10 个
func speakingDuration(text string, speed float64) float64 {
	var cjk, other int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			cjk++
		case unicode.IsSpace(r) || unicode.IsPunct(r):
		default:
			other++
		}
	}
	d := float64(cjk)/3.0 + float64(other)/10.0
	if speed > 0 {
		d /= speed
	}
	return d
}
