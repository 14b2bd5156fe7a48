package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/strata")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 7086, cfg.HTTP.Port)
	assert.Equal(t, "http://localhost:7086", cfg.HTTP.PublicBaseURL)
	assert.Equal(t, 5, cfg.Files.MaxFiles)
	assert.EqualValues(t, 5<<20, cfg.Files.MaxBytes)
	assert.Equal(t, 14*24*time.Hour, cfg.Dispute.AccessLinkTTL)
	assert.Equal(t, 10*time.Minute, cfg.Dispute.VerificationCodeTTL)
	assert.Equal(t, 2*time.Hour, cfg.Auth.OccupantSessionTTL)
	assert.Equal(t, 8, cfg.Notify.MaxAttempts)
	assert.Equal(t, 10, cfg.Redis.PublicRequestsPerMinute)
	assert.Equal(t, 5*time.Minute, cfg.Cache.CategoryTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/strata")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("ACCESS_LINK_TTL", "72h")
	t.Setenv("UPLOAD_MAX_FILES", "3")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 72*time.Hour, cfg.Dispute.AccessLinkTTL)
	assert.Equal(t, 3, cfg.Files.MaxFiles)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("missing dsn", func(t *testing.T) {
		t.Setenv("DB_DSN", "")
		t.Setenv("JWT_ACCESS_SECRET", "secret")
		_, err := Load()
		require.ErrorContains(t, err, "DB_DSN")
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("DB_DSN", "postgres://localhost/strata")
		t.Setenv("JWT_ACCESS_SECRET", "")
		_, err := Load()
		require.ErrorContains(t, err, "JWT_ACCESS_SECRET")
	})

	t.Run("too many files", func(t *testing.T) {
		t.Setenv("DB_DSN", "postgres://localhost/strata")
		t.Setenv("JWT_ACCESS_SECRET", "secret")
		t.Setenv("UPLOAD_MAX_FILES", "9")
		_, err := Load()
		require.ErrorContains(t, err, "UPLOAD_MAX_FILES")
	})
}
