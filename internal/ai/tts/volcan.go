package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"vocata/internal/ai/dto"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	volcanDefaultVoice = "BV001_streaming"
	volcanSuccessCode  = 3000
)

var volcanVoices = []string{
	"BV001_streaming", // 通用女声
	"BV002_streaming", // 通用男声
	"BV034_streaming", // 清甜女声
	"BV033_streaming", // 温暖男声
	"BV700_streaming", // 小萝莉
	"BV701_streaming", // 温柔女声
	"BV702_streaming", // 清脆男声
	"zh_female_tianmeixiaotian_moon_bigtts",
	"zh_female_huanhuan_moon_bigtts",
	"zh_male_wennuan_moon_bigtts",
	"zh_female_yangqi_moon_bigtts",
	"zh_female_shuangkuai_moon_bigtts",
	"en_male_adam_moon_bigtts",
}

// 旧版音色名到新版音色的映射
var volcanVoiceAliases = map[string]string{
	"tianmeixiaotian": "zh_female_tianmeixiaotian_moon_bigtts",
	"huanhuan":        "zh_female_huanhuan_moon_bigtts",
	"wennuan":         "zh_male_wennuan_moon_bigtts",
	"yangqi":          "zh_female_yangqi_moon_bigtts",
	"shuangkuai":      "zh_female_shuangkuai_moon_bigtts",
	"voice-en-harry":  "en_male_adam_moon_bigtts",
}

// VolcanConfig 火山引擎语音合成配置
type VolcanConfig struct {
	AppID   string
	Token   string
	Cluster string
	Host    string
	Voice   string
	Scheme  string // 默认 https
	Timeout time.Duration
}

// Volcan 火山引擎 HTTP 语音合成
type Volcan struct {
	cfg    VolcanConfig
	client *resty.Client
	logger *zap.Logger
}

func NewVolcan(cfg VolcanConfig, logger *zap.Logger) *Volcan {
	if cfg.Cluster == "" {
		cfg.Cluster = "volcano_tts"
	}
	if cfg.Host == "" {
		cfg.Host = "openspeech.bytedance.com"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().SetTimeout(cfg.Timeout)
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal
	return &Volcan{
		cfg:    cfg,
		client: client,
		logger: logger.Named("tts").With(zap.String("provider", "volcan")),
	}
}

func (v *Volcan) Name() string              { return "火山引擎TTS" }
func (v *Volcan) Aliases() []string         { return []string{"bytedance"} }
func (v *Volcan) Available() bool           { return v.cfg.AppID != "" && v.cfg.Token != "" }
func (v *Volcan) SupportedVoices() []string { return slices.Clone(volcanVoices) }

func (v *Volcan) EstimateAudioDuration(text string) float64 {
	return speakingDuration(text, 1.0)
}

type volcanRequest struct {
	App struct {
		AppID   string `json:"appid"`
		Token   string `json:"token"`
		Cluster string `json:"cluster"`
	} `json:"app"`
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	Audio struct {
		VoiceType   string  `json:"voice_type"`
		Encoding    string  `json:"encoding"`
		SampleRate  int     `json:"sample_rate"`
		SpeedRatio  float64 `json:"speed_ratio"`
		VolumeRatio float64 `json:"volume_ratio"`
		PitchRatio  float64 `json:"pitch_ratio"`
	} `json:"audio"`
	Request struct {
		ReqID     string `json:"reqid"`
		Text      string `json:"text"`
		TextType  string `json:"text_type"`
		Operation string `json:"operation"`
	} `json:"request"`
}

type volcanResponse struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Data     string `json:"data"`
	Addition *struct {
		Duration string `json:"duration"` // 毫秒
	} `json:"addition"`
}

func (v *Volcan) StreamSynthesize(ctx context.Context, text *schema.StreamReader[string], cfg dto.TtsConfig) (*schema.StreamReader[*dto.AudioChunk], error) {
	if !v.Available() {
		return nil, ErrNotConfigured
	}
	return streamBySegment(ctx, text, cfg, v.Synthesize), nil
}

func (v *Volcan) Synthesize(ctx context.Context, text string, cfg dto.TtsConfig) (*dto.TtsResult, error) {
	if !v.Available() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	body := v.buildRequest(text, cfg)
	var out volcanResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer;"+v.cfg.Token).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("%s://%s/api/v1/tts", v.cfg.Scheme, v.cfg.Host))
	if err != nil {
		v.logger.Error("request failed", zap.String("reqid", body.Request.ReqID), zap.Error(err))
		return nil, fmt.Errorf("%w: request", ErrSynthesize)
	}
	if resp.IsError() || (out.Code != volcanSuccessCode && out.Code != 0) {
		v.logger.Error("synthesis rejected",
			zap.Int("status", resp.StatusCode()), zap.Int("code", out.Code),
			zap.String("message", out.Message), zap.String("reqid", body.Request.ReqID))
		return nil, fmt.Errorf("%w: code %d", ErrSynthesize, out.Code)
	}

	audio, err := base64.StdEncoding.DecodeString(out.Data)
	if err != nil || len(audio) == 0 {
		v.logger.Error("invalid audio payload", zap.String("reqid", body.Request.ReqID), zap.Error(err))
		return nil, fmt.Errorf("%w: empty audio", ErrSynthesize)
	}

	duration := speakingDuration(text, cfg.Speed)
	if out.Addition != nil {
		if ms, err := strconv.ParseFloat(out.Addition.Duration, 64); err == nil && ms > 0 {
			duration = ms / 1000
		}
	}
	return &dto.TtsResult{
		AudioData:       audio,
		AudioFormat:     body.Audio.Encoding,
		SampleRate:      body.Audio.SampleRate,
		DurationSeconds: duration,
		VoiceID:         body.Audio.VoiceType,
		Metadata:        map[string]any{"provider": "volcan", "reqid": body.Request.ReqID},
	}, nil
}

func (v *Volcan) buildRequest(text string, cfg dto.TtsConfig) *volcanRequest {
	req := &volcanRequest{}
	req.App.AppID = v.cfg.AppID
	req.App.Token = v.cfg.Token
	req.App.Cluster = v.cfg.Cluster
	req.User.UID = "vocata"
	req.Audio.VoiceType = v.voice(cfg.VoiceID)
	req.Audio.Encoding = audioEncoding(cfg.AudioFormat)
	req.Audio.SampleRate = cfg.SampleRate
	if req.Audio.SampleRate == 0 {
		req.Audio.SampleRate = dto.DefaultTtsSampleRate
	}
	req.Audio.SpeedRatio = ratio(cfg.Speed)
	req.Audio.VolumeRatio = ratio(cfg.Volume)
	req.Audio.PitchRatio = ratio(cfg.Pitch)
	req.Request.ReqID = uuid.NewString()
	req.Request.Text = text
	req.Request.TextType = "plain"
	req.Request.Operation = "query"
	return req
}

func (v *Volcan) voice(id string) string {
	if slices.Contains(volcanVoices, id) {
		return id
	}
	if mapped, ok := volcanVoiceAliases[id]; ok {
		return mapped
	}
	if v.cfg.Voice != "" {
		return v.cfg.Voice
	}
	return volcanDefaultVoice
}

func audioEncoding(format string) string {
	switch strings.ToLower(format) {
	case "wav", "pcm", "ogg_opus":
		return strings.ToLower(format)
	default:
		return "mp3"
	}
}

func ratio(v float64) float64 {
	if v <= 0 {
		return 1.0
	}
	return v
}
