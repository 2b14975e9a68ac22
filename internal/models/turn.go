package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Speaker 定義發言者
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAI        Speaker = "AI"
	SpeakerAIForUser Speaker = "AI_for_user" // AI 代替用戶發言
)

func (s Speaker) Valid() bool {
	switch s {
	case SpeakerUser, SpeakerAI, SpeakerAIForUser:
		return true
	}
	return false
}

// Turn 表示辯論中的一次發言
// 同一場辯論的 OrderNumber 從 1 開始連續遞增，寫入後不可修改
type Turn struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DebateID    string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_turns_debate_order,priority:1" json:"debate_id"`
	Speaker     Speaker   `gorm:"type:varchar(16);not null" json:"speaker"`
	Content     string    `gorm:"type:text" json:"content"`
	OrderNumber int       `gorm:"not null;uniqueIndex:ux_turns_debate_order,priority:2" json:"order_number"`
	Model       string    `gorm:"type:varchar(64)" json:"model"`
	UserID      string    `gorm:"type:varchar(36);index" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *Turn) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
