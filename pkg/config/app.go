package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
)

// Config is the complete trustgate server configuration
type Config struct {
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	Persistence string `env:"PERSISTENCE" env-default:"postgres"`
	// MigrateOnStart applies the embedded schema before serving
	MigrateOnStart bool `env:"MIGRATE_ON_START" env-default:"false"`

	Database    DatabaseConfig
	Email       EmailConfig
	DeviceTrust DeviceTrustConfig
	Session     SessionConfig

	// Server
	AppConfig app.AppConfig
}

// Load reads an optional .env file and then the environment
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			slog.Info("Loading configuration from .env file", "path", envFile)
			if err := godotenv.Load(envFile); err != nil {
				slog.Warn("Failed to load .env file", "error", err)
			}
		} else {
			slog.Debug("No .env file found (using environment variables or defaults)", "path", envFile)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every section used by the server
func (c Config) Validate() error {
	validators := []Validator{
		c.DeviceTrust.Validate,
		c.Email.Validate,
		c.Session.Validate,
		func() ValidationErrors {
			return collect(RequireOneOf("PERSISTENCE", c.Persistence, []string{"postgres", "memory"}))
		},
	}
	if c.Persistence == "postgres" {
		validators = append(validators, c.Database.Validate)
	}
	return Validate(validators...)
}

// SlogLevel maps LOG_LEVEL to a slog level
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
