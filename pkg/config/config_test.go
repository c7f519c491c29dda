package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		LogLevel:    "info",
		Persistence: "postgres",
		Database: DatabaseConfig{
			Host: "localhost", Port: 5432, Database: "trustgate_db", User: "trustgate",
		},
		Email: EmailConfig{Host: "localhost", Port: 1025, From: "security@example.com"},
		DeviceTrust: DeviceTrustConfig{
			BaseURL:           "https://app.example.com",
			DisableTokenTTL:   15 * time.Minute,
			SideEffectTimeout: 30 * time.Second,
			TokenCleanupEvery: time.Hour,
			TokenRetention:    30 * 24 * time.Hour,
			VerdictAPIKey:     "fedcba9876543210fedcba9876543210",
		},
		Session: SessionConfig{
			Secret:     "0123456789abcdef0123456789abcdef",
			MaxAgeDays: 30,
			CookieName: "session",
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("LOGIN_VERDICT_API_KEY", "fedcba9876543210fedcba9876543210")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.DeviceTrust.DisableTokenTTL)
	assert.Equal(t, 30, cfg.Session.MaxAgeDays)
	assert.Equal(t, 720*time.Hour, cfg.DeviceTrust.TokenRetention)
	assert.True(t, cfg.DeviceTrust.AsyncSideEffects)
	assert.Equal(t, "postgres", cfg.Persistence)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DEVICE_DISABLE_TOKEN_TTL", "5m")
	t.Setenv("SESSION_MAX_AGE_DAYS", "7")
	t.Setenv("BASE_URL", "https://login.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.DeviceTrust.DisableTokenTTL)
	assert.Equal(t, 7, cfg.Session.MaxAgeDays)
	assert.Equal(t, "https://login.example.com", cfg.DeviceTrust.BaseURL)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Session.Secret = "short"
	cfg.DeviceTrust.BaseURL = "not a url"
	cfg.DeviceTrust.DisableTokenTTL = 0
	cfg.Persistence = "file"

	err := cfg.Validate()
	require.Error(t, err)
	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	assert.True(t, fields["SESSION_SECRET"])
	assert.True(t, fields["BASE_URL"])
	assert.True(t, fields["DEVICE_DISABLE_TOKEN_TTL"])
	assert.True(t, fields["PERSISTENCE"])
}

func TestValidate_MemorySkipsDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Persistence = "memory"
	cfg.Database = DatabaseConfig{}
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_ToDatabaseURL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Database: "tg", User: "u", Password: "p", Schema: "trust"}
	assert.Equal(t, "postgres://u:p@db:5433/tg?sslmode=disable&search_path=trust,public", d.ToDatabaseURL())
	assert.Equal(t, uint16(5433), d.ToDbConfig().Port)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: ""}.SlogLevel())
}

func TestValidate_RequiresVerdictAPIKey(t *testing.T) {
	for _, key := range []string{"", "too-short"} {
		cfg := validConfig()
		cfg.DeviceTrust.VerdictAPIKey = key

		err := cfg.Validate()
		var errs ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Len(t, errs, 1)
		assert.Equal(t, "LOGIN_VERDICT_API_KEY", errs[0].Field)
	}
}
