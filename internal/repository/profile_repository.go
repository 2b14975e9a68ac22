package repository

import (
	"context"

	"gorm.io/gorm"

	"debateai/internal/models"
	"debateai/internal/storage"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	Update(ctx context.Context, id string, patch map[string]any) error
	// IncrementTrialCount 在 pro_trial_count < limit 時原子地加一
	// 回傳 false 表示已達上限（或在並發請求中落後）
	IncrementTrialCount(ctx context.Context, id string, limit int) (bool, error)
}

type profileRepository struct {
	db *storage.DB
}

func NewProfileRepository(db *storage.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, notFound(err, "profile", id)
	}
	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, id string, patch map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "profile", id)
	}
	return nil
}

func (r *profileRepository) IncrementTrialCount(ctx context.Context, id string, limit int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ? AND pro_trial_count < ?", id, limit).
		UpdateColumn("pro_trial_count", gorm.Expr("pro_trial_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
