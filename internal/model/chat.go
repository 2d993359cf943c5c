package model

// StreamChatRequest 文本对话请求，响应为 SSE 事件流
type StreamChatRequest struct {
	ConvID  string `json:"conv_id" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// WebSocket 入站消息类型
const (
	WSAudioStart  = "audio_start"
	WSAudioEnd    = "audio_end"
	WSTextMessage = "text_message"
	WSPing        = "ping"
)

// WebSocket 出站控制消息类型
const (
	WSPong   = "pong"
	WSStatus = "status"
)

// WSInbound 客户端发送的 JSON 控制消息
type WSInbound struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Language   string `json:"language,omitempty"`
}

// WSControl 服务端发送的非事件消息
type WSControl struct {
	Type      string `json:"type"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// SynthesizeRequest 批量语音合成
type SynthesizeRequest struct {
	Text    string  `json:"text" binding:"required,max=2000"`
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed" binding:"omitempty,gte=0.5,lte=2"`
	Format  string  `json:"format" binding:"omitempty,oneof=mp3 wav pcm"`
}
