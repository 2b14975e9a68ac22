package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debateai/internal/models"
	"debateai/pkg/config"
)

func TestOpenSQLite(t *testing.T) {
	db, err := Open(config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.AutoMigrate(models.All()...))
	assert.True(t, db.Migrator().HasTable(&models.Turn{}))
	assert.True(t, db.Migrator().HasIndex(&models.Turn{}, "ux_turns_debate_order"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}
