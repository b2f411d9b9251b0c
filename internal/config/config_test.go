package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, "America/New_York", cfg.ProgramTimezone)
	assert.Equal(t, 60*time.Second, cfg.ProgressCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.DirectoryCacheTTL)
	assert.Equal(t, "global", cfg.MeetingQueueScope)
	assert.Equal(t, 5, cfg.NotifyMaxAttempts)
	assert.True(t, cfg.AccessLog)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.True(t, cfg.Dev())
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("PROGRESS_CACHE_TTL", "15s")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("ACCESS_LOG", "false")
	t.Setenv("MEETING_QUEUE_SCOPE", "clinic")

	cfg := Load()
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 15*time.Second, cfg.ProgressCacheTTL)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.False(t, cfg.AccessLog)
	assert.Equal(t, "clinic", cfg.MeetingQueueScope)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ACCESS_TTL", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "many")
	t.Setenv("ACCESS_LOG", "maybe")

	cfg := Load()
	assert.Equal(t, 12*time.Hour, cfg.AccessTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.True(t, cfg.AccessLog)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.StoreBackend = "sqlite"
	cfg.MeetingQueueScope = "director"
	cfg.ProgramTimezone = "Mars/Olympus"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "STORE_BACKEND")
	assert.ErrorContains(t, err, "MEETING_QUEUE_SCOPE")
	assert.ErrorContains(t, err, "PROGRAM_TIMEZONE")
}

func TestCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " https://clinic.example.edu , ,https://admin.example.edu")
	cfg := Load()
	assert.Equal(t, []string{"https://clinic.example.edu", "https://admin.example.edu"}, cfg.CORSOrigins)
	require.NoError(t, cfg.Validate())

	cfg.CORSOrigins = []string{"*"}
	assert.ErrorContains(t, cfg.Validate(), "CORS_ORIGINS")
}

func TestValidate_ProductionNeedsSigningKey(t *testing.T) {
	cfg := Load()
	cfg.Env = "production"

	assert.ErrorContains(t, cfg.Validate(), "JWT_SIGNING_KEY")
}

func TestLocation(t *testing.T) {
	cfg := Load()
	cfg.ProgramTimezone = "UTC"

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
