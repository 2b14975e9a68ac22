package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"debateai/internal/apperrors"
	"debateai/internal/models"
	"debateai/internal/storage"
)

type TurnRepository interface {
	// Create 寫入一筆回合，(debate_id, order_number) 重複時回傳 ErrInvalidSequence
	Create(ctx context.Context, turn *models.Turn) error
	// FindByDebateID 依 order_number 由小到大回傳
	FindByDebateID(ctx context.Context, debateID string) ([]models.Turn, error)
}

type turnRepository struct {
	db *storage.DB
}

func NewTurnRepository(db *storage.DB) TurnRepository {
	return &turnRepository{db: db}
}

func (r *turnRepository) Create(ctx context.Context, turn *models.Turn) error {
	err := r.db.WithContext(ctx).Create(turn).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("turn %d of debate %s already exists: %w", turn.OrderNumber, turn.DebateID, apperrors.ErrInvalidSequence)
	}
	return err
}

func (r *turnRepository) FindByDebateID(ctx context.Context, debateID string) ([]models.Turn, error) {
	var turns []models.Turn
	err := r.db.WithContext(ctx).Where("debate_id = ?", debateID).Order("order_number asc").Find(&turns).Error
	return turns, err
}
