package repository

import (
	"context"

	"debateai/internal/models"
	"debateai/internal/storage"
)

type DebateRepository interface {
	Create(ctx context.Context, debate *models.Debate) error
	FindByID(ctx context.Context, id string) (*models.Debate, error)
	FindByUser(ctx context.Context, userID string) ([]models.Debate, error)
}

type debateRepository struct {
	db *storage.DB
}

func NewDebateRepository(db *storage.DB) DebateRepository {
	return &debateRepository{db: db}
}

func (r *debateRepository) Create(ctx context.Context, debate *models.Debate) error {
	return r.db.WithContext(ctx).Create(debate).Error
}

func (r *debateRepository) FindByID(ctx context.Context, id string) (*models.Debate, error) {
	var debate models.Debate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&debate).Error
	if err != nil {
		return nil, notFound(err, "debate", id)
	}
	return &debate, nil
}

// FindByUser 查詢用戶的所有辯論，新的在前
func (r *debateRepository) FindByUser(ctx context.Context, userID string) ([]models.Debate, error) {
	var debates []models.Debate
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&debates).Error
	return debates, err
}
