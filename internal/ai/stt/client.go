// Package stt defines the speech recognition capability and its vendor adapters.
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"

	"vocata/internal/ai/dto"

	"github.com/cloudwego/eino/schema"
)

// 面向用户的识别提示
const (
	MsgRecognizeFailed = "语音识别失败，请重试"
	MsgUnavailable     = "语音识别服务暂不可用"
)

var (
	ErrNotConfigured = errors.New("speech recognition provider is not configured")
	ErrRecognize     = errors.New("speech recognition failed")
	ErrNoSpeech      = errors.New("no speech recognized")
)

// Client 语音识别能力。实现必须无状态、可并发调用。
type Client interface {
	Name() string
	Available() bool
	// StreamRecognize 消费音频流，输出中间与最终识别结果，分段节奏由实现决定。
	// 识别过程中的错误通过流的 Recv 返回。
	StreamRecognize(ctx context.Context, audio *schema.StreamReader[[]byte], cfg dto.SttConfig) (*schema.StreamReader[*dto.SttResult], error)
	Recognize(ctx context.Context, audio []byte, cfg dto.SttConfig) (*dto.SttResult, error)
}

// recognizeOnce 用流式接口完成一次性识别，返回最后一个有效结果
func recognizeOnce(ctx context.Context, c Client, audio []byte, cfg dto.SttConfig) (*dto.SttResult, error) {
	sr, err := c.StreamRecognize(ctx, schema.StreamReaderFromArray([][]byte{audio}), cfg)
	if err != nil {
		return nil, err
	}
	defer sr.Close()

	var last *dto.SttResult
	for {
		r, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to recognize audio: %w", err)
		}
		if r.Valid() {
			last = r
		}
	}
	if last == nil {
		return nil, ErrNoSpeech
	}
	last.IsFinal = true
	return last, nil
}
