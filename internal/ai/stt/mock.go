package stt

import (
	"context"
	"errors"
	"io"
	"strings"

	"vocata/internal/ai/dto"
	"vocata/internal/ai/streams"

	"github.com/cloudwego/eino/schema"
)

var mockWords = []string{"你好", "我想", "和你", "聊天", "关于", "人工智能", "的话题"}

// Mock 模拟识别：每收到一段音频输出一个逐步累积的中间结果，音频结束时输出最终结果
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string    { return "MockSTT" }
func (m *Mock) Available() bool { return true }

func (m *Mock) StreamRecognize(ctx context.Context, audio *schema.StreamReader[[]byte], cfg dto.SttConfig) (*schema.StreamReader[*dto.SttResult], error) {
	sr, sw := schema.Pipe[*dto.SttResult](len(mockWords) + 1)
	go func() {
		defer sw.Close()
		defer audio.Close()

		var (
			received int
			words    int
		)
		for {
			chunk, err := streams.Recv(ctx, audio)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				sw.Send(nil, err)
				return
			}
			if len(chunk) == 0 {
				continue
			}
			received += len(chunk)
			if words < len(mockWords)-1 {
				words++
				r := mockResult(words, false, cfg)
				if closed := sw.Send(r, nil); closed {
					return
				}
			}
		}
		if received == 0 {
			return
		}
		sw.Send(mockResult(len(mockWords), true, cfg), nil)
	}()
	return sr, nil
}

func (m *Mock) Recognize(ctx context.Context, audio []byte, cfg dto.SttConfig) (*dto.SttResult, error) {
	if len(audio) == 0 {
		return nil, ErrNoSpeech
	}
	return &dto.SttResult{
		Text:       strings.Join(mockWords, ""),
		Confidence: 0.92,
		IsFinal:    true,
		Metadata:   map[string]any{"provider": m.Name(), "language": cfg.Language},
	}, nil
}

func mockResult(words int, final bool, cfg dto.SttConfig) *dto.SttResult {
	return &dto.SttResult{
		Text:        strings.Join(mockWords[:words], ""),
		Confidence:  0.95 - float64(words-1)*0.01,
		IsFinal:     final,
		StartTimeMs: 0,
		EndTimeMs:   int64(words) * 500,
		Metadata:    map[string]any{"provider": "MockSTT", "language": cfg.Language},
	}
}
