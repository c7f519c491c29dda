package config

import "time"

// DeviceTrustConfig controls the login-time device trust gate
type DeviceTrustConfig struct {
	// BaseURL prefixes the disable link sent in new-device alerts
	BaseURL         string        `env:"BASE_URL" env-default:"http://localhost:4000"`
	DisableTokenTTL time.Duration `env:"DEVICE_DISABLE_TOKEN_TTL" env-default:"15m"`
	// AsyncSideEffects sends alerts and security events after the login response
	AsyncSideEffects  bool          `env:"DEVICE_TRUST_ASYNC_SIDE_EFFECTS" env-default:"true"`
	SideEffectTimeout time.Duration `env:"DEVICE_TRUST_SIDE_EFFECT_TIMEOUT" env-default:"30s"`
	TokenCleanupEvery time.Duration `env:"DEVICE_DISABLE_TOKEN_CLEANUP_INTERVAL" env-default:"1h"`
	// TokenRetention keeps expired links answering "expired" before cleanup deletes them
	TokenRetention time.Duration `env:"DEVICE_DISABLE_TOKEN_RETENTION" env-default:"720h"`
	// VerdictAPIKey must be sent by callers of the login verdict endpoint
	VerdictAPIKey string `env:"LOGIN_VERDICT_API_KEY" env-default:""`
}

func (d DeviceTrustConfig) Validate() ValidationErrors {
	return collect(
		RequireValidURL("BASE_URL", d.BaseURL),
		RequirePositiveDuration("DEVICE_DISABLE_TOKEN_TTL", d.DisableTokenTTL),
		RequirePositiveDuration("DEVICE_TRUST_SIDE_EFFECT_TIMEOUT", d.SideEffectTimeout),
		RequirePositiveDuration("DEVICE_DISABLE_TOKEN_CLEANUP_INTERVAL", d.TokenCleanupEvery),
		RequirePositiveDuration("DEVICE_DISABLE_TOKEN_RETENTION", d.TokenRetention),
		RequireMinLength("LOGIN_VERDICT_API_KEY", d.VerdictAPIKey, 32),
	)
}
