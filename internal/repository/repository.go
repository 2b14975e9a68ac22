package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"debateai/internal/apperrors"
	"debateai/internal/storage"
)

type Repositories struct {
	User    UserRepository
	Profile ProfileRepository
	Debate  DebateRepository
	Turn    TurnRepository
}

func NewRepositories(db *storage.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Profile: NewProfileRepository(db),
		Debate:  NewDebateRepository(db),
		Turn:    NewTurnRepository(db),
	}
}

// notFound 將 gorm.ErrRecordNotFound 轉成 apperrors.ErrNotFound
func notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, apperrors.ErrNotFound)
	}
	return err
}
