package config

// SessionConfig controls the signed session cookie
type SessionConfig struct {
	Secret       string `env:"SESSION_SECRET" env-default:""`
	Issuer       string `env:"SESSION_ISSUER" env-default:"trustgate"`
	MaxAgeDays   int    `env:"SESSION_MAX_AGE_DAYS" env-default:"30"`
	CookieName   string `env:"SESSION_COOKIE_NAME" env-default:"session"`
	CookieSecure bool   `env:"SESSION_COOKIE_SECURE" env-default:"true"`
}

func (s SessionConfig) Validate() ValidationErrors {
	return collect(
		RequireNonEmpty("SESSION_SECRET", s.Secret),
		WhenSet(s.Secret, func() *ValidationError { return RequireMinLength("SESSION_SECRET", s.Secret, 32) }),
		RequirePositive("SESSION_MAX_AGE_DAYS", s.MaxAgeDays),
		RequireNonEmpty("SESSION_COOKIE_NAME", s.CookieName),
	)
}
