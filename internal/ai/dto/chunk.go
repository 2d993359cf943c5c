package dto

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

var ErrStreamFinished = errors.New("stream already produced its final chunk")

// ChunkType 流式分片类型
type ChunkType string

const (
	ChunkContent ChunkType = "CONTENT"
	ChunkStatus  ChunkType = "STATUS"
	ChunkError   ChunkType = "ERROR"
	ChunkDone    ChunkType = "DONE"
)

const (
	FinishStop   = "stop"
	FinishLength = "length"
	FinishError  = "error"
)

// TokenUsage token 统计，总数在读取时计算，不单独保存
type TokenUsage struct {
	input  *int
	output *int
}

func NewTokenUsage(input, output int) *TokenUsage {
	u := &TokenUsage{}
	u.SetInputTokens(input)
	u.SetOutputTokens(output)
	return u
}

func (u *TokenUsage) SetInputTokens(n int)  { u.input = &n }
func (u *TokenUsage) SetOutputTokens(n int) { u.output = &n }

func (u *TokenUsage) InputTokens() *int  { return u.input }
func (u *TokenUsage) OutputTokens() *int { return u.output }

// TotalTokens 两者都存在时返回 input+output，否则为 nil
func (u *TokenUsage) TotalTokens() *int {
	if u == nil || u.input == nil || u.output == nil {
		return nil
	}
	total := *u.input + *u.output
	return &total
}

type tokenUsageJSON struct {
	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens *int `json:"output_tokens,omitempty"`
	TotalTokens  *int `json:"total_tokens,omitempty"`
}

func (u *TokenUsage) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(tokenUsageJSON{
		InputTokens:  u.input,
		OutputTokens: u.output,
		TotalTokens:  u.TotalTokens(),
	})
}

func (u *TokenUsage) UnmarshalJSON(b []byte) error {
	var v tokenUsageJSON
	if err := sonic.Unmarshal(b, &v); err != nil {
		return err
	}
	u.input, u.output = v.InputTokens, v.OutputTokens
	return nil
}

// PerformanceMetrics 单次流的性能指标
type PerformanceMetrics struct {
	LatencyMs           int64    `json:"latency_ms"`
	FirstTokenLatencyMs int64    `json:"first_token_latency_ms"`
	TokensPerSecond     float64  `json:"tokens_per_second"`
	QualityScore        *float64 `json:"quality_score,omitempty"`
}

// UnifiedStreamChunk 统一的流式分片
type UnifiedStreamChunk struct {
	Type               ChunkType           `json:"type"`
	ChunkIndex         int                 `json:"chunk_index"`
	Content            string              `json:"content"`
	AccumulatedContent string              `json:"accumulated_content"`
	FinishReason       string              `json:"finish_reason,omitempty"`
	IsFinal            bool                `json:"is_final"`
	TokenUsage         *TokenUsage         `json:"token_usage,omitempty"`
	Performance        *PerformanceMetrics `json:"performance,omitempty"`
	Timestamp          time.Time           `json:"timestamp"`
}

// ChunkSequencer 为单条流分配递增序号并维护累计内容。
// 终止分片（DONE 或 ERROR）只会产生一次，之后的调用返回 ErrStreamFinished。
// 非并发安全，每条流独占一个实例。
type ChunkSequencer struct {
	next        int
	accumulated []byte
	start       time.Time
	firstToken  time.Time
	finished    bool
	now         func() time.Time
}

func NewChunkSequencer() *ChunkSequencer {
	return newChunkSequencer(time.Now)
}

func newChunkSequencer(now func() time.Time) *ChunkSequencer {
	return &ChunkSequencer{start: now(), now: now}
}

// Finished 是否已产生终止分片
func (s *ChunkSequencer) Finished() bool { return s.finished }

// Accumulated 当前累计文本
func (s *ChunkSequencer) Accumulated() string { return string(s.accumulated) }

// Content 追加一段增量文本
func (s *ChunkSequencer) Content(delta string) (*UnifiedStreamChunk, error) {
	if s.finished {
		return nil, ErrStreamFinished
	}
	if s.firstToken.IsZero() && delta != "" {
		s.firstToken = s.now()
	}
	s.accumulated = append(s.accumulated, delta...)
	return s.chunk(ChunkContent, delta), nil
}

// Status 非内容类的状态通知
func (s *ChunkSequencer) Status(message string) (*UnifiedStreamChunk, error) {
	if s.finished {
		return nil, ErrStreamFinished
	}
	return s.chunk(ChunkStatus, message), nil
}

// Done 产生终止分片，附带 token 用量和性能指标
func (s *ChunkSequencer) Done(finishReason string, usage *TokenUsage) (*UnifiedStreamChunk, error) {
	if s.finished {
		return nil, ErrStreamFinished
	}
	if finishReason == "" {
		finishReason = FinishStop
	}
	s.finished = true
	c := s.chunk(ChunkDone, "")
	c.FinishReason = finishReason
	c.IsFinal = true
	c.TokenUsage = usage
	c.Performance = s.performance(usage)
	return c, nil
}

// Error 以错误结束流，message 面向用户
func (s *ChunkSequencer) Error(message string) (*UnifiedStreamChunk, error) {
	if s.finished {
		return nil, ErrStreamFinished
	}
	s.finished = true
	c := s.chunk(ChunkError, message)
	c.FinishReason = FinishError
	c.IsFinal = true
	c.Performance = s.performance(nil)
	return c, nil
}

func (s *ChunkSequencer) chunk(t ChunkType, content string) *UnifiedStreamChunk {
	c := &UnifiedStreamChunk{
		Type:               t,
		ChunkIndex:         s.next,
		Content:            content,
		AccumulatedContent: string(s.accumulated),
		Timestamp:          s.now(),
	}
	s.next++
	return c
}

func (s *ChunkSequencer) performance(usage *TokenUsage) *PerformanceMetrics {
	end := s.now()
	p := &PerformanceMetrics{LatencyMs: end.Sub(s.start).Milliseconds()}
	if !s.firstToken.IsZero() {
		p.FirstTokenLatencyMs = s.firstToken.Sub(s.start).Milliseconds()
	}
	tokens := 0
	if usage != nil && usage.OutputTokens() != nil {
		tokens = *usage.OutputTokens()
	} else {
		tokens = EstimateTokens(string(s.accumulated))
	}
	if secs := end.Sub(s.start).Seconds(); secs > 0 {
		p.TokensPerSecond = float64(tokens) / secs
	}
	return p
}

// EstimateTokens 粗略估算 token 数：约 4 个字符一个 token
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
