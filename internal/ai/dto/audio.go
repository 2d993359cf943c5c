package dto

import (
	"fmt"
	"strings"
)

const (
	DefaultLanguage      = "zh-CN"
	DefaultSttSampleRate = 16000
	DefaultTtsSampleRate = 24000
)

// SttConfig 语音识别参数
type SttConfig struct {
	Language          string `json:"language"`
	Model             string `json:"model,omitempty"`
	SampleRate        int    `json:"sample_rate"`
	AudioFormat       string `json:"audio_format"`
	EnableVAD         bool   `json:"enable_vad"`
	EnablePunctuation bool   `json:"enable_punctuation"`
}

func DefaultSttConfig() SttConfig {
	return SttConfig{
		Language:          DefaultLanguage,
		SampleRate:        DefaultSttSampleRate,
		AudioFormat:       "webm",
		EnableVAD:         true,
		EnablePunctuation: true,
	}
}

// SttResult 识别结果，IsFinal 区分中间结果和最终结果
type SttResult struct {
	Text        string         `json:"text"`
	Confidence  float64        `json:"confidence"`
	IsFinal     bool           `json:"is_final"`
	StartTimeMs int64          `json:"start_time_ms,omitempty"`
	EndTimeMs   int64          `json:"end_time_ms,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// MetadataError 标记识别失败的 metadata 键
const MetadataError = "error"

// Valid 有文本且没有错误标记
func (r *SttResult) Valid() bool {
	if r == nil || strings.TrimSpace(r.Text) == "" {
		return false
	}
	_, failed := r.Metadata[MetadataError]
	return !failed
}

// TtsConfig 语音合成参数
type TtsConfig struct {
	VoiceID     string  `json:"voice_id"`
	Language    string  `json:"language"`
	Speed       float64 `json:"speed"`
	Pitch       float64 `json:"pitch"`
	Volume      float64 `json:"volume"`
	AudioFormat string  `json:"audio_format"`
	SampleRate  int     `json:"sample_rate"`
	Streaming   bool    `json:"streaming"`
}

func DefaultTtsConfig() TtsConfig {
	return TtsConfig{
		Language:    DefaultLanguage,
		Speed:       1.0,
		Pitch:       1.0,
		Volume:      1.0,
		AudioFormat: "mp3",
		SampleRate:  DefaultTtsSampleRate,
	}
}

// Validate 校验语速、音调、音量
func (c TtsConfig) Validate() error {
	if c.Speed < 0.5 || c.Speed > 2.0 {
		return fmt.Errorf("speed %.2f out of [0.5,2.0]", c.Speed)
	}
	if c.Pitch < 0.5 || c.Pitch > 2.0 {
		return fmt.Errorf("pitch %.2f out of [0.5,2.0]", c.Pitch)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume %.2f out of [0,1]", c.Volume)
	}
	return nil
}

// TtsResult 批量合成结果
type TtsResult struct {
	AudioData       []byte         `json:"-"`
	AudioFormat     string         `json:"audio_format"`
	SampleRate      int            `json:"sample_rate"`
	DurationSeconds float64        `json:"duration_seconds"`
	VoiceID         string         `json:"voice_id"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// AudioChunk 流式合成的一个音频分片，对应一个文本分段
type AudioChunk struct {
	Data        []byte
	Format      string
	SampleRate  int
	Sequence    int
	SegmentText string
}
