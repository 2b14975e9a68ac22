package conversation

import (
	"fmt"

	"github.com/samber/lo"

	"debateai/internal/apperrors"
	"debateai/internal/llm"
	"debateai/internal/models"
)

var speakerRoles = map[models.Speaker]llm.Role{
	models.SpeakerUser:      llm.RoleUser,
	models.SpeakerAI:        llm.RoleAssistant,
	models.SpeakerAIForUser: llm.RoleUser, // 代替使用者發言，佔用使用者的位置
}

// RoleFor 將已儲存的發言者對應到模型訊息角色
func RoleFor(speaker models.Speaker) (llm.Role, error) {
	if !speaker.Valid() {
		return "", fmt.Errorf("unknown speaker %q: %w", speaker, apperrors.ErrInvalidSequence)
	}
	return speakerRoles[speaker], nil
}

// InvertRole 互換 user 與 assistant，system 不變
func InvertRole(role llm.Role) llm.Role {
	switch role {
	case llm.RoleUser:
		return llm.RoleAssistant
	case llm.RoleAssistant:
		return llm.RoleUser
	default:
		return role
	}
}

// Invert 回傳角色互換後的新訊息列表，不修改原列表
func Invert(messages []llm.Message) []llm.Message {
	return lo.Map(messages, func(m llm.Message, _ int) llm.Message {
		return llm.Message{Role: InvertRole(m.Role), Content: m.Content}
	})
}

func replay(turns []models.Turn) ([]llm.Message, error) {
	messages := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		role, err := RoleFor(turn.Speaker)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", turn.OrderNumber, err)
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return messages, nil
}
