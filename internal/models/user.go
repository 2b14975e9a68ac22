package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 表示可登入的帳號，ID 同時也是 Profile 的 ID
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"` // 用戶名，必須唯一
	Password  string    `gorm:"not null" json:"-"`                    // bcrypt 雜湊，json 序列化時會被忽略
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
