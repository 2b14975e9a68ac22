package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debateai/internal/apperrors"
	"debateai/internal/logging"
	"debateai/internal/models"
	"debateai/internal/utils"
)

type fakeProfiles map[string]*models.Profile

func (f fakeProfiles) FindByID(_ context.Context, id string) (*models.Profile, error) {
	if id == "broken" {
		return nil, errors.New("connection reset")
	}
	p, ok := f[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

func TestResolve(t *testing.T) {
	const secret = "s3cret"
	profiles := fakeProfiles{"u1": {ID: "u1", Plan: models.PlanPro}}
	r := NewResolver(secret, profiles, logging.Discard())
	ctx := context.Background()

	token, err := utils.GenerateToken([]byte(secret), "u1", time.Hour)
	require.NoError(t, err)

	caller, err := r.Resolve(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.True(t, caller.Authenticated)
	assert.Equal(t, "u1", caller.UserID)
	assert.True(t, caller.Profile.IsPro())

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer garbage", token} {
		caller, err := r.Resolve(ctx, header)
		require.NoError(t, err)
		assert.False(t, caller.Authenticated, "header %q", header)
	}

	missing, err := utils.GenerateToken([]byte(secret), "ghost", time.Hour)
	require.NoError(t, err)
	caller, err = r.Resolve(ctx, "Bearer "+missing)
	require.NoError(t, err)
	assert.False(t, caller.Authenticated)

	broken, err := utils.GenerateToken([]byte(secret), "broken", time.Hour)
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "Bearer "+broken)
	assert.Error(t, err)
}
