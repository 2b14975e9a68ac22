package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Debate 表示一場辯論，建立後 ShortTopic 與 Model 不再變動
type Debate struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Topic      string    `gorm:"type:text;not null" json:"topic"`
	ShortTopic string    `gorm:"type:varchar(100)" json:"short_topic"`
	Persona    string    `gorm:"type:text" json:"persona"`
	Model      string    `gorm:"type:varchar(64)" json:"model"`
	UserID     *string   `gorm:"type:varchar(36);index" json:"user_id"` // 匿名辯論為 nil
	CreatedAt  time.Time `json:"created_at"`
}

func (d *Debate) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
