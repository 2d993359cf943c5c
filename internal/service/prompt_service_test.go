package service

import (
	"context"
	"testing"

	"vocata/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPromptFillsTemplate(t *testing.T) {
	svc := NewPromptService(nil)
	prompt := svc.BuildSystemPrompt(context.Background(), &model.Character{
		Name:              "林黛玉",
		Persona:           "寄居贾府的才女",
		PersonalityTraits: `["敏感","聪慧"]`,
		SpeakingStyle:     "含蓄婉转",
		ExampleDialogues:  `[{"user":"你好","assistant":"你来了。"},{"user":"","assistant":"缺了用户"}]`,
	})

	assert.Contains(t, prompt, "寄居贾府的才女")
	assert.Contains(t, prompt, "林黛玉")
	assert.Contains(t, prompt, "敏感、聪慧")
	assert.Contains(t, prompt, "含蓄婉转")
	assert.Contains(t, prompt, "示例1:\n用户: 你好\n角色: 你来了。")
	assert.NotContains(t, prompt, "缺了用户")
	assert.NotContains(t, prompt, "{CHARACTER_")
	assert.Contains(t, prompt, "纯文本输出")
}

func TestBuildSystemPromptFallbacks(t *testing.T) {
	svc := NewPromptService(nil)
	prompt := svc.BuildSystemPrompt(context.Background(), &model.Character{
		PersonalityTraits: "直爽",
		ExampleDialogues:  "用户问好时热情回应",
	})

	assert.Contains(t, prompt, defaultCharacterName)
	assert.Contains(t, prompt, defaultCharacterPersona)
	assert.Contains(t, prompt, defaultSpeakingStyle)
	assert.Contains(t, prompt, "直爽")
	assert.Contains(t, prompt, "用户问好时热情回应")

	assert.Equal(t, defaultAssistantPersona, svc.BuildSystemPrompt(context.Background(), nil))
}

func TestDialogueText(t *testing.T) {
	assert.Equal(t, noDialogueExamples, dialogueText(""))
	assert.Equal(t, noDialogueExamples, dialogueText("[]"))
	assert.Equal(t, "示例1:\n用户: 在吗\n角色: 在的\n\n示例2:\n用户: 再见\n角色: 慢走\n",
		dialogueText(`[{"user":"在吗","assistant":"在的"},{"user":"再见","assistant":"慢走"}]`))
}

func TestPersonalityText(t *testing.T) {
	assert.Equal(t, defaultPersonality, personalityText("  "))
	assert.Equal(t, "友好、乐于助人", personalityText("[]"))
	assert.Equal(t, "开朗", personalityText("开朗"))
}
