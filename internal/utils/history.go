package utils

import (
	"strings"

	"vocata/internal/ai/dto"
	"vocata/internal/model"
)

// MessageList2ChatHistory 数据库消息转为对话历史，跳过空文本消息
func MessageList2ChatHistory(msgs []*model.Message) []dto.ChatMessage {
	history := make([]dto.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.TextContent) == "" {
			continue
		}
		role := dto.RoleUser
		if m.SenderType == model.SenderCharacter {
			role = dto.RoleAssistant
		}
		history = append(history, dto.ChatMessage{Role: role, Content: m.TextContent})
	}
	return history
}
