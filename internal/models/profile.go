package models

import "time"

// Plan 定義訂閱方案
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Profile 保存用戶的方案與試用次數
// ProTrialCount 只會遞增，由 entitlement 與計費流程更新
type Profile struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Plan          Plan      `gorm:"type:varchar(16);not null;default:'free'" json:"plan"`
	ProTrialCount int       `gorm:"not null;default:0" json:"pro_trial_count"`
	StripeID      *string   `gorm:"type:varchar(64);index" json:"stripe_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (p *Profile) IsPro() bool {
	return p != nil && p.Plan == PlanPro
}
