// Package pipeline 把一次对话轮次的 STT、LLM、TTS 输出聚合为有序的事件流
package pipeline

import (
	"time"

	"vocata/internal/ai/dto"

	"github.com/bytedance/sonic"
)

// EnvelopeType 事件类型，由 payload 决定
type EnvelopeType string

const (
	TypeSttResult  EnvelopeType = "stt_result"
	TypeLlmChunk   EnvelopeType = "llm_chunk"
	TypeAudioChunk EnvelopeType = "audio_chunk"
	TypeTtsResult  EnvelopeType = "tts_result"
	TypeError      EnvelopeType = "error"
	TypeComplete   EnvelopeType = "complete"
)

// 出错阶段
const (
	StageRequest = "request"
	StageSTT     = "stt"
	StageLLM     = "llm"
	StageTTS     = "tts"
	StagePersist = "persist"
)

// Payload 只能由本包内的类型实现
type Payload interface {
	envelopeType() EnvelopeType
}

type SttPayload struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	IsFinal    bool    `json:"is_final"`
}

type LlmPayload struct {
	Text            string `json:"text"`
	AccumulatedText string `json:"accumulated_text"`
	ChunkIndex      int    `json:"chunk_index"`
	IsFinal         bool   `json:"is_final"`
}

// AudioPayload Data 在 JSON 中为 base64
type AudioPayload struct {
	Data        []byte `json:"data"`
	Format      string `json:"format"`
	Sequence    int    `json:"sequence"`
	SegmentText string `json:"segment_text"`
}

type TtsPayload struct {
	AudioURL        string  `json:"audio_url"`
	AudioFormat     string  `json:"audio_format"`
	SampleRate      int     `json:"sample_rate"`
	DurationSeconds float64 `json:"duration_seconds"`
	VoiceID         string  `json:"voice_id"`
}

type ErrorPayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type CompletePayload struct {
	Message   string          `json:"message"`
	Text      string          `json:"text"`
	MessageID string          `json:"message_id,omitempty"`
	Usage     *dto.TokenUsage `json:"usage,omitempty"`
}

func (SttPayload) envelopeType() EnvelopeType      { return TypeSttResult }
func (LlmPayload) envelopeType() EnvelopeType      { return TypeLlmChunk }
func (AudioPayload) envelopeType() EnvelopeType    { return TypeAudioChunk }
func (TtsPayload) envelopeType() EnvelopeType      { return TypeTtsResult }
func (ErrorPayload) envelopeType() EnvelopeType    { return TypeError }
func (CompletePayload) envelopeType() EnvelopeType { return TypeComplete }

// Envelope 推送给客户端的单个事件
type Envelope struct {
	Payload   Payload
	Metadata  map[string]string
	Timestamp time.Time
}

func NewEnvelope(p Payload, metadata map[string]string) *Envelope {
	return &Envelope{Payload: p, Metadata: metadata, Timestamp: time.Now()}
}

func (e *Envelope) Type() EnvelopeType {
	return e.Payload.envelopeType()
}

type wireEnvelope struct {
	Type      EnvelopeType      `json:"type"`
	Payload   Payload           `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

func (e *Envelope) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(wireEnvelope{
		Type:      e.Type(),
		Payload:   e.Payload,
		Metadata:  e.Metadata,
		Timestamp: e.Timestamp.UnixMilli(),
	})
}

// ErrorEnvelope 便于传输层在轮次之外报告错误
func ErrorEnvelope(stage, message string, metadata map[string]string) *Envelope {
	return NewEnvelope(ErrorPayload{Stage: stage, Message: message}, metadata)
}
