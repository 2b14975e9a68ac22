// Package conversation 根據辯論歷史與發言者決定回合類型，並組出送給模型的訊息。
//
// 五種回合類型：
//
//	AIOpens        沒有歷史，AI 先發言
//	UserOpens      沒有歷史，使用者先發言
//	UserContinues  有歷史，使用者回應 AI
//	AIContinues    有歷史，AI 回應使用者
//	AIForUser      AI 代替使用者發言（角色互換）
package conversation

import (
	"fmt"
	"strings"

	"debateai/internal/apperrors"
	"debateai/internal/llm"
	"debateai/internal/models"
)

type Case int

const (
	CaseAIOpens Case = iota + 1
	CaseUserOpens
	CaseUserContinues
	CaseAIContinues
	CaseAIForUser
)

func (c Case) String() string {
	switch c {
	case CaseAIOpens:
		return "ai_opens"
	case CaseUserOpens:
		return "user_opens"
	case CaseUserContinues:
		return "user_continues"
	case CaseAIContinues:
		return "ai_continues"
	case CaseAIForUser:
		return "ai_for_user"
	default:
		return "unknown"
	}
}

// DeriveCase 由是否已有回合與發言者推導回合類型
func DeriveCase(hasTurns bool, speaker models.Speaker) (Case, error) {
	switch {
	case speaker == models.SpeakerAIForUser:
		return CaseAIForUser, nil
	case speaker == models.SpeakerAI && !hasTurns:
		return CaseAIOpens, nil
	case speaker == models.SpeakerAI:
		return CaseAIContinues, nil
	case speaker == models.SpeakerUser && !hasTurns:
		return CaseUserOpens, nil
	case speaker == models.SpeakerUser:
		return CaseUserContinues, nil
	}
	return 0, fmt.Errorf("unsupported speaker %q: %w", speaker, apperrors.ErrInvalidTurnRequest)
}

type Input struct {
	Debate   *models.Debate
	Turns    []models.Turn // 依 order_number 遞增
	Speaker  models.Speaker
	Argument string
}

// Plan 是一次回合的執行計畫
type Plan struct {
	Case     Case
	Messages []llm.Message
	// Pending 是生成前要先儲存的使用者論點，沒有則為 nil
	// Model 與 UserID 由呼叫端補上
	Pending *models.Turn
	// Speaker 與 OrderNumber 屬於即將生成的回合
	Speaker     models.Speaker
	OrderNumber int
}

// Build 依回合類型組出訊息，前置條件不符時不產生任何副作用
func Build(in Input) (*Plan, error) {
	if in.Debate == nil {
		return nil, fmt.Errorf("debate is required: %w", apperrors.ErrInvalidTurnRequest)
	}

	c, err := DeriveCase(len(in.Turns) > 0, in.Speaker)
	if err != nil {
		return nil, err
	}

	b := builder{
		topic:   in.Debate.ShortTopic,
		persona: in.Debate.Persona,
		prior:   len(in.Turns),
	}
	if b.topic == "" {
		b.topic = in.Debate.Topic
	}

	var plan *Plan
	switch c {
	case CaseAIOpens:
		plan = b.aiOpens()
	case CaseUserOpens:
		plan, err = b.userOpens(in.Debate.ID, in.Argument)
	case CaseUserContinues:
		plan, err = b.userContinues(in.Debate.ID, in.Turns, in.Argument)
	case CaseAIContinues:
		plan, err = b.aiContinues(in.Turns)
	case CaseAIForUser:
		plan, err = b.aiForUser(in.Turns)
	}
	if err != nil {
		return nil, err
	}
	plan.Case = c
	return plan, nil
}

type builder struct {
	topic   string
	persona string
	prior   int
}

func (b builder) system() llm.Message {
	return llm.Message{Role: llm.RoleSystem, Content: systemPrompt(b.topic, b.persona)}
}

func (b builder) aiOpens() *Plan {
	return &Plan{
		Messages: []llm.Message{
			b.system(),
			{Role: llm.RoleUser, Content: openingRequest(b.topic, b.persona)},
			{Role: llm.RoleAssistant, Content: openingPrimer(b.topic, b.persona)},
		},
		Speaker:     models.SpeakerAI,
		OrderNumber: 1,
	}
}

func (b builder) userOpens(debateID, argument string) (*Plan, error) {
	if strings.TrimSpace(argument) == "" {
		return nil, fmt.Errorf("argument is required: %w", apperrors.ErrInvalidTurnRequest)
	}
	return &Plan{
		Messages: []llm.Message{
			b.system(),
			{Role: llm.RoleUser, Content: argument},
			{Role: llm.RoleAssistant, Content: responsePrimer(b.topic, b.persona)},
		},
		Pending:     b.pending(debateID, argument, 1),
		Speaker:     models.SpeakerAI,
		OrderNumber: 2,
	}, nil
}

func (b builder) userContinues(debateID string, turns []models.Turn, argument string) (*Plan, error) {
	if strings.TrimSpace(argument) == "" {
		return nil, fmt.Errorf("argument is required: %w", apperrors.ErrInvalidTurnRequest)
	}
	history, err := b.replayExpecting(turns, llm.RoleAssistant)
	if err != nil {
		return nil, err
	}

	messages := append([]llm.Message{b.system()}, history...)
	messages = append(messages,
		llm.Message{Role: llm.RoleUser, Content: argument},
		llm.Message{Role: llm.RoleAssistant, Content: responsePrimer(b.topic, b.persona)},
	)
	return &Plan{
		Messages:    messages,
		Pending:     b.pending(debateID, argument, b.prior+1),
		Speaker:     models.SpeakerAI,
		OrderNumber: b.prior + 2,
	}, nil
}

func (b builder) aiContinues(turns []models.Turn) (*Plan, error) {
	history, err := b.replayExpecting(turns, llm.RoleUser)
	if err != nil {
		return nil, err
	}

	messages := append([]llm.Message{b.system()}, history...)
	messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: continuePrimer(b.topic, b.persona)})
	return &Plan{
		Messages:    messages,
		Speaker:     models.SpeakerAI,
		OrderNumber: b.prior + 1,
	}, nil
}

func (b builder) aiForUser(turns []models.Turn) (*Plan, error) {
	history, err := b.replayExpecting(turns, llm.RoleAssistant)
	if err != nil {
		return nil, err
	}

	messages := append([]llm.Message{
		{Role: llm.RoleSystem, Content: againstPersonaPrompt(b.topic, b.persona)},
	}, Invert(history)...)
	messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: forUserPrimer(b.topic)})
	return &Plan{
		Messages:    messages,
		Speaker:     models.SpeakerAIForUser,
		OrderNumber: b.prior + 1,
	}, nil
}

// replayExpecting 重播歷史並檢查最後一則訊息的角色
func (b builder) replayExpecting(turns []models.Turn, last llm.Role) ([]llm.Message, error) {
	history, err := replay(turns)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 || history[len(history)-1].Role != last {
		return nil, fmt.Errorf("last message must be %s: %w", last, apperrors.ErrInvalidSequence)
	}
	return history, nil
}

func (b builder) pending(debateID, argument string, order int) *models.Turn {
	return &models.Turn{
		DebateID:    debateID,
		Speaker:     models.SpeakerUser,
		Content:     argument,
		OrderNumber: order,
	}
}
