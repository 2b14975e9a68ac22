// Package identity 從 bearer token 解析呼叫者身分。
package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"debateai/internal/apperrors"
	"debateai/internal/models"
	"debateai/internal/utils"
)

// Caller 是目前請求的呼叫者，未驗證時 UserID 為空
type Caller struct {
	UserID        string
	Authenticated bool
	Profile       *models.Profile
}

// Anonymous 回傳未驗證的呼叫者
func Anonymous() Caller {
	return Caller{}
}

type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

type Resolver struct {
	secret   []byte
	profiles ProfileFinder
	logger   *slog.Logger
}

func NewResolver(secret string, profiles ProfileFinder, logger *slog.Logger) *Resolver {
	return &Resolver{secret: []byte(secret), profiles: profiles, logger: logger}
}

// Resolve 解析 Authorization 標頭，無效或缺少 token 時回傳匿名呼叫者
// 只有讀取 profile 的儲存錯誤會回傳 error
func (r *Resolver) Resolve(ctx context.Context, authorization string) (Caller, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		return Anonymous(), nil
	}

	claims, err := utils.ParseToken(r.secret, token)
	if err != nil {
		r.logger.Debug("ignoring invalid bearer token", "error", err)
		return Anonymous(), nil
	}

	profile, err := r.profiles.FindByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		// 帳號已刪除
		r.logger.Warn("token refers to missing profile", "user_id", claims.UserID)
		return Anonymous(), nil
	case err != nil:
		return Anonymous(), err
	}

	return Caller{UserID: claims.UserID, Authenticated: true, Profile: profile}, nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
