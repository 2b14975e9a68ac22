package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: s3cret\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "gpt-4o-mini", cfg.Turn.DefaultModel)
	assert.Equal(t, 5, cfg.Turn.TrialLimit)
	assert.Equal(t, 2*time.Minute, cfg.Turn.GenerationTimeout)
	assert.True(t, cfg.Turn.PersistPartial)
	assert.False(t, cfg.Turn.AllowOverride)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: s3cret\ndb:\n  driver: sqlite\n")
	t.Setenv("DEBATEAI_TURN_TRIAL_LIMIT", "2")
	t.Setenv("DEBATEAI_OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 2, cfg.Turn.TrialLimit)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestLoadRequiresSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  address: \":9000\"\n")

	_, err := Load(path)
	assert.Error(t, err)
}
