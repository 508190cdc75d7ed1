package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/mathle/internal/synth"
)

var allKeys = []string{
	"PORT", "DB_PATH", "SCORES_DIR", "SCORES_IN_MEMORY", "REDIS_URL", "JWT_SECRET",
	"JWT_EXPIRES_DAYS", "COOKIE_NAME", "CLIENT_ORIGIN", "DAILY_SALT", "DAILY_MODE",
	"MODES_FILE", "SYNTH_BUDGET", "NEW_ROUND_RPS", "NEW_ROUND_BURST", "NODE_ENV",
	"LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":5175", cfg.Addr())
	assert.Equal(t, "./data/app.db", cfg.DBPath)
	assert.Equal(t, DevJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 14, cfg.JWTExpiresDays)
	assert.Equal(t, "normal", cfg.DailyMode)
	assert.Equal(t, synth.DefaultBudget, cfg.SynthBudget)
	assert.Equal(t, 2.0, cfg.NewRoundRPS)
	assert.Equal(t, 5, cfg.NewRoundBurst)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.Production)
	assert.False(t, cfg.ScoresInMemory)
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("SCORES_IN_MEMORY", "true")
	t.Setenv("SCORES_DIR", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("NEW_ROUND_RPS", "0.5")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.ScoresInMemory)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 0.5, cfg.NewRoundRPS)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"non-integer", map[string]string{"JWT_EXPIRES_DAYS": "soon"}, "JWT_EXPIRES_DAYS: not an integer"},
		{"non-number rps", map[string]string{"NEW_ROUND_RPS": "fast"}, "NEW_ROUND_RPS: not a number"},
		{"zero rps", map[string]string{"NEW_ROUND_RPS": "0"}, "NewRoundRPS"},
		{"bad port", map[string]string{"PORT": "http"}, "Port"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LogLevel"},
		{"bad redis url", map[string]string{"REDIS_URL": "not a url"}, "RedisURL"},
		{"missing modes file", map[string]string{"MODES_FILE": "/nonexistent/modes.yaml"}, "ModesFile"},
		{"dev secret in production", map[string]string{"NODE_ENV": "production"}, "JWT_SECRET must be set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := FromEnv()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestProductionWithSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "production")
	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Production)
}
