package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultMaxAgeDays = 30
	DefaultCookieName = "session"
)

// SignerConfig configures session signing and the cookie carrying it
type SignerConfig struct {
	Secret       string
	Issuer       string
	MaxAgeDays   int
	CookieName   string
	CookieSecure bool
}

// Signer mints HS256 session tokens and sets them as cookies
type Signer struct {
	secret     []byte
	issuer     string
	maxAge     time.Duration
	cookieName string
	cookies    CookieSetter
	auth       *jwtauth.JWTAuth
	now        func() time.Time
}

type SignerOption func(*Signer)

func WithSignerClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

func WithCookieSetter(cookies CookieSetter) SignerOption {
	return func(s *Signer) {
		s.cookies = cookies
	}
}

func NewSigner(cfg SignerConfig, opts ...SignerOption) *Signer {
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = DefaultMaxAgeDays
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	s := &Signer{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		maxAge:     time.Duration(cfg.MaxAgeDays) * 24 * time.Hour,
		cookieName: cfg.CookieName,
		cookies:    NewCookieSetter(cfg.CookieSecure),
		auth:       jwtauth.New("HS256", []byte(cfg.Secret), nil),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign stamps the registered claims and returns the signed token with its expiry
func (s *Signer) Sign(claims Claims) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.maxAge)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   strconv.FormatInt(claims.ID, 10),
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.New().String(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		slog.Error("Failed to sign session token", "user_id", claims.ID, "error", err)
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expires, nil
}

// Parse validates a session token and returns its claims
func (s *Signer) Parse(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("failed to parse session token: %w", err)
	}
	return claims, nil
}

func (s *Signer) SetSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	s.cookies.SetCookie(w, s.cookieName, token, expires)
}

func (s *Signer) ClearSessionCookie(w http.ResponseWriter) {
	s.cookies.ClearCookie(w, s.cookieName)
}

func (s *Signer) CookieName() string {
	return s.cookieName
}

// JWTAuth returns the jwtauth verifier for the signing secret
func (s *Signer) JWTAuth() *jwtauth.JWTAuth {
	return s.auth
}

// Verifier looks for the token in the Authorization header, then the session cookie
func (s *Signer) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(s.auth, jwtauth.TokenFromHeader, s.tokenFromCookie)
}

func (s *Signer) tokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

var registeredClaimKeys = []string{"iss", "sub", "aud", "exp", "nbf", "iat", "jti"}

// ClaimsFromContext decodes the session claims verified by jwtauth
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	_, raw, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, err
	}
	if raw == nil {
		return Claims{}, errors.New("no session claims in context")
	}

	custom := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		custom[k] = v
	}
	for _, k := range registeredClaimKeys {
		delete(custom, k)
	}

	data, err := json.Marshal(custom)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid session claims: %w", err)
	}
	var claims Claims
	if err := json.Unmarshal(data, &claims); err != nil {
		return Claims{}, fmt.Errorf("invalid session claims: %w", err)
	}
	if sub, ok := raw["sub"].(string); ok {
		claims.Subject = sub
	}
	return claims, nil
}
