package model

// ProviderInfo 单个 provider 的状态
type ProviderInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Selected  bool   `json:"selected"`
}

// CapabilityProviders 某一能力的选择结果与全部候选
type CapabilityProviders struct {
	Selected  string          `json:"selected"`
	Reason    string          `json:"reason"`
	Providers []*ProviderInfo `json:"providers"`
}

type ProvidersResponse struct {
	LLM CapabilityProviders `json:"llm"`
	STT CapabilityProviders `json:"stt"`
	TTS CapabilityProviders `json:"tts"`
}

// SynthesizeResponse 批量合成结果，音频已上传
type SynthesizeResponse struct {
	AudioURL        string  `json:"audio_url"`
	AudioFormat     string  `json:"audio_format"`
	SampleRate      int     `json:"sample_rate"`
	DurationSeconds float64 `json:"duration_seconds"`
	VoiceID         string  `json:"voice_id"`
	Provider        string  `json:"provider"`
}

// RecognizeResponse 批量识别结果
type RecognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Provider   string  `json:"provider"`
}
