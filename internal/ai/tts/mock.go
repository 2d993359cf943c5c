package tts

import (
	"context"
	"encoding/binary"
	"math"
	"slices"
	"unicode/utf8"

	"vocata/internal/ai/dto"

	"github.com/cloudwego/eino/schema"
)

const (
	mockBytesPerRune = 1000
	mockToneHz       = 440.0
	mockSampleRate   = 44100
)

var mockVoices = []string{"xiaoxiao", "xiaoyi", "xiaoyun", "xiaomo"}

// Mock 输出 440Hz 正弦波 PCM，每个字符 1000 字节
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string              { return "MockTTS" }
func (m *Mock) Available() bool           { return true }
func (m *Mock) SupportedVoices() []string { return slices.Clone(mockVoices) }

func (m *Mock) EstimateAudioDuration(text string) float64 {
	return float64(utf8.RuneCountInString(text)) * 0.5
}

func (m *Mock) StreamSynthesize(ctx context.Context, text *schema.StreamReader[string], cfg dto.TtsConfig) (*schema.StreamReader[*dto.AudioChunk], error) {
	return streamBySegment(ctx, text, cfg, m.Synthesize), nil
}

func (m *Mock) Synthesize(ctx context.Context, text string, cfg dto.TtsConfig) (*dto.TtsResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	voice := cfg.VoiceID
	if !slices.Contains(mockVoices, voice) {
		voice = mockVoices[0]
	}
	return &dto.TtsResult{
		AudioData:       sineWave(utf8.RuneCountInString(text) * mockBytesPerRune),
		AudioFormat:     "pcm",
		SampleRate:      mockSampleRate,
		DurationSeconds: m.EstimateAudioDuration(text),
		VoiceID:         voice,
		Metadata:        map[string]any{"provider": m.Name()},
	}, nil
}

// sineWave 生成 16bit 小端 PCM
func sineWave(size int) []byte {
	size -= size % 2
	out := make([]byte, size)
	for i := 0; i < size/2; i++ {
		v := math.Sin(2 * math.Pi * mockToneHz * float64(i) / mockSampleRate)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*math.MaxInt16*0.3)))
	}
	return out
}
