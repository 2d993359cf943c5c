package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// 会话状态
const (
	ConversationActive   = 0
	ConversationArchived = 1
)

// 消息发送方
const (
	SenderUser      = 1
	SenderCharacter = 2
)

// 消息内容类型
const (
	ContentText  = 1
	ContentImage = 2
	ContentAudio = 3
)

// Conversation 用户与角色的会话
type Conversation struct {
	ConvID             string    `gorm:"primaryKey;type:char(36)" json:"conv_id"`
	UserID             uint      `gorm:"index" json:"user_id"`
	CharacterID        string    `gorm:"index;type:char(36)" json:"character_id"`
	Title              string    `json:"title"`
	LastMessageSummary string    `gorm:"type:text" json:"last_message_summary"`
	IsArchived         bool      `gorm:"default:false" json:"is_archived"`
	IsPinned           bool      `gorm:"default:false" json:"is_pinned"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Message 会话中的单条消息
type Message struct {
	MsgID       string    `gorm:"primaryKey;type:char(36)" json:"msg_id"`
	ConvID      string    `gorm:"index;type:char(36)" json:"conv_id"`
	SenderType  int       `json:"sender_type"`
	ContentType int       `gorm:"default:1" json:"content_type"`
	TextContent string    `gorm:"type:text" json:"text_content"`
	AudioURL    string    `json:"audio_url"`
	LLMModelID  string    `json:"llm_model_id"`
	TTSVoiceID  string    `json:"tts_voice_id"`
	TokenCount  int       `json:"token_count"`
	Metadata    JSONMap   `gorm:"type:text" json:"metadata"`
	OrderSeq    int       `gorm:"index" json:"order_seq"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CreateConversationRequest 创建会话请求
type CreateConversationRequest struct {
	CharacterID string `json:"character_id" binding:"required"`
	Title       string `json:"title"`
}

// RenameConversationRequest 重命名会话
type RenameConversationRequest struct {
	ConvID string `json:"conv_id" binding:"required"`
	Title  string `json:"title" binding:"required,max=100"`
}

type ConvIDRequest struct {
	ConvID string `json:"conv_id" binding:"required"`
}

// JSONMap 以 JSON 文本存储的 map
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := sonic.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}
	if len(b) == 0 {
		*m = nil
		return nil
	}
	return sonic.Unmarshal(b, m)
}
