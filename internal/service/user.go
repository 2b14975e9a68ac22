package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"debateai/internal/apperrors"
	"debateai/internal/models"
	"debateai/internal/repository"
	"debateai/internal/utils"
)

type UserService struct {
	userRepo repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

func NewUserService(userRepo repository.UserRepository, secret string, tokenTTL time.Duration) *UserService {
	return &UserService{userRepo: userRepo, secret: []byte(secret), tokenTTL: tokenTTL}
}

// Register 建立帳號，密碼以 bcrypt 儲存
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Password: string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login 驗證帳號密碼並簽發 JWT
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", fmt.Errorf("invalid username or password: %w", apperrors.ErrUnauthorized)
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid username or password: %w", apperrors.ErrUnauthorized)
	}

	return utils.GenerateToken(s.secret, user.ID, s.tokenTTL)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.FindByID(ctx, id)
}
