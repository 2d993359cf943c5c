package service

import (
	"context"
	"fmt"
	"strings"

	"vocata/internal/model"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

const (
	defaultCharacterName    = "未知角色"
	defaultCharacterPersona = "一个友好、乐于助人的角色"
	defaultPersonality      = "友好、乐于助人、耐心细致"
	defaultSpeakingStyle    = "自然亲切，语调温和，表达清晰"
	noDialogueExamples      = "暂无对话示例"
	defaultAssistantPersona = "你是一个友好、乐于助人的语音助手。你会以自然、温暖的方式与用户交流，帮助解答问题并提供有用的信息。"
)

// 角色扮演系统提示词，占位符使用 FString 语法
const rolePlayTemplate = `### 角色扮演语音助手

你需要完全沉浸在指定的角色中，通过语音与用户进行自然、流畅的交流，并严格遵循以下设定和准则。

#### 一、角色核心设定

1. 角色背景故事与世界观:
   {CHARACTER_PERSONA}

2. 角色姓名:
   {CHARACTER_NAME}

3. 核心性格特质:
   {CHARACTER_PERSONALITY}

4. 说话风格与口吻:
   {CHARACTER_SPEAKING_STYLE}

#### 二、角色行为范例

- 示例对话:
   {CHARACTER_DIALOGUES}

#### 三、对话规则

1. 纯文本输出。不要使用Markdown、HTML、链接、表情符号或其他无法朗读的格式。
2. 每次回答控制在一百个中文字符左右。
3. 数字尽量用中文读法输出，例如用"一百"而不是"100"，年份和代号除外。
4. 始终以角色身份说话，不要承认或暗示自己是人工智能、语言模型或程序。
5. 知识与记忆局限在角色的世界观之内。
6. 不生成违法、色情或侵犯隐私的内容，不提供医疗、法律、金融方面的专业建议。
7. 对敏感话题保持中立，不操控或诱导用户。
8. 以回应用户为主，避免无意义的重复。
9. 记忆仅限于当前会话。
`

type PromptService interface {
	// BuildSystemPrompt 用角色设定填充系统提示词，character 为空时返回默认助手人设
	BuildSystemPrompt(ctx context.Context, character *model.Character) string
}

type promptService struct {
	tpl    prompt.ChatTemplate
	logger *zap.Logger
}

func NewPromptService(logger *zap.Logger) PromptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &promptService{
		tpl:    prompt.FromMessages(schema.FString, schema.SystemMessage(rolePlayTemplate)),
		logger: logger.Named("prompt"),
	}
}

func (s *promptService) BuildSystemPrompt(ctx context.Context, character *model.Character) string {
	if character == nil {
		return defaultAssistantPersona
	}

	msgs, err := s.tpl.Format(ctx, map[string]any{
		"CHARACTER_PERSONA":        orDefault(character.Persona, defaultCharacterPersona),
		"CHARACTER_NAME":           orDefault(character.Name, defaultCharacterName),
		"CHARACTER_PERSONALITY":    personalityText(character.PersonalityTraits),
		"CHARACTER_SPEAKING_STYLE": orDefault(character.SpeakingStyle, defaultSpeakingStyle),
		"CHARACTER_DIALOGUES":      dialogueText(character.ExampleDialogues),
	})
	if err != nil || len(msgs) == 0 {
		s.logger.Error("failed to format role play prompt", zap.String("character", character.Name), zap.Error(err))
		return orDefault(character.Persona, defaultAssistantPersona)
	}
	return msgs[0].Content
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// personalityText 支持 JSON 数组或纯文本
func personalityText(traits string) string {
	traits = strings.TrimSpace(traits)
	if traits == "" {
		return defaultPersonality
	}
	var list []string
	if err := sonic.UnmarshalString(traits, &list); err != nil {
		return traits
	}
	if len(list) == 0 {
		return "友好、乐于助人"
	}
	return strings.Join(list, "、")
}

// dialogueText 支持 [{"user":"..","assistant":".."}] 格式，解析失败时使用原文
func dialogueText(dialogues string) string {
	dialogues = strings.TrimSpace(dialogues)
	if dialogues == "" {
		return noDialogueExamples
	}
	var list []map[string]string
	if err := sonic.UnmarshalString(dialogues, &list); err != nil {
		return dialogues
	}

	var b strings.Builder
	n := 0
	for _, d := range list {
		user, assistant := d["user"], d["assistant"]
		if user == "" || assistant == "" {
			continue
		}
		if n > 0 {
			b.WriteString("\n")
		}
		n++
		fmt.Fprintf(&b, "示例%d:\n用户: %s\n角色: %s\n", n, strings.TrimSpace(user), strings.TrimSpace(assistant))
	}
	if n == 0 {
		return noDialogueExamples
	}
	return b.String()
}
