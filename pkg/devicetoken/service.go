package devicetoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/trustgate/pkg/securitylog"
)

const (
	DefaultTokenExpiry = 15 * time.Minute
	DisablePath        = "/security/devices/disable"

	// DefaultRetention is how long an expired, unused token is kept. Until
	// then redeeming it reports ErrTokenExpired; afterwards ErrTokenInvalid.
	DefaultRetention = 30 * 24 * time.Hour
)

// Service issues and redeems single-use device-disable tokens
type Service struct {
	repo        Repository
	baseURL     string
	tokenExpiry time.Duration
	retention   time.Duration
	now         func() time.Time
	recorder    securitylog.Recorder
}

// Option defines configuration options
type Option func(*Service)

// WithTokenExpiry sets the token lifetime
func WithTokenExpiry(expiry time.Duration) Option {
	return func(s *Service) {
		if expiry > 0 {
			s.tokenExpiry = expiry
		}
	}
}

// WithRetention sets how long expired tokens survive CleanupExpiredTokens
func WithRetention(retention time.Duration) Option {
	return func(s *Service) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSecurityLog records a DEVICE_REVOKED event for every successful redemption
func WithSecurityLog(recorder securitylog.Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

func NewService(repo Repository, baseURL string, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokenExpiry: DefaultTokenExpiry,
		retention:   DefaultRetention,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RedeemResult identifies the device a redeemed token revoked
type RedeemResult struct {
	TokenID  uuid.UUID
	UserID   int64
	DeviceID uuid.UUID
}

// Issue creates a token for the device and returns the raw value. The raw value
// is only ever returned here.
func (s *Service) Issue(ctx context.Context, userID int64, deviceID uuid.UUID) (string, error) {
	raw, hash, err := GenerateToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	token := DisableToken{
		ID:        uuid.New(),
		UserID:    userID,
		DeviceID:  deviceID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.tokenExpiry),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		slog.Error("Failed to create disable token", "user_id", userID, "device_id", deviceID, "error", err)
		return "", fmt.Errorf("failed to create disable token: %w", err)
	}

	slog.Info("Disable token issued", "user_id", userID, "device_id", deviceID, "token_id", token.ID, "expires_at", token.ExpiresAt)
	return raw, nil
}

// DisableURL builds the emailed link for a raw token
func (s *Service) DisableURL(raw string) string {
	return fmt.Sprintf("%s%s?token=%s", s.baseURL, DisablePath, url.QueryEscape(raw))
}

// IssueDisableLink issues a token and returns the link that embeds it
func (s *Service) IssueDisableLink(ctx context.Context, userID int64, deviceID uuid.UUID) (string, error) {
	raw, err := s.Issue(ctx, userID, deviceID)
	if err != nil {
		return "", err
	}
	return s.DisableURL(raw), nil
}

// Redeem consumes a raw token and revokes the device it was issued for.
// Rejections are ErrTokenInvalid, ErrTokenExpired and ErrTokenAlreadyUsed, and
// none of them change any state.
func (s *Service) Redeem(ctx context.Context, raw string) (RedeemResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RedeemResult{}, ErrTokenInvalid
	}

	token, err := s.repo.GetByHash(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			slog.Warn("Unknown disable token presented")
			return RedeemResult{}, ErrTokenInvalid
		}
		return RedeemResult{}, fmt.Errorf("failed to look up disable token: %w", err)
	}

	now := s.now()
	if token.IsExpired(now) {
		slog.Warn("Disable token expired", "token_id", token.ID, "expires_at", token.ExpiresAt)
		return RedeemResult{}, ErrTokenExpired
	}
	if token.UsedAt != nil {
		slog.Warn("Disable token already used", "token_id", token.ID, "used_at", *token.UsedAt)
		return RedeemResult{}, ErrTokenAlreadyUsed
	}

	consumed, err := s.repo.Consume(ctx, token.ID, now)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenAlreadyUsed), errors.Is(err, ErrTokenExpired):
			return RedeemResult{}, err
		case errors.Is(err, ErrTokenNotFound):
			return RedeemResult{}, ErrTokenInvalid
		}
		slog.Error("Failed to redeem disable token", "token_id", token.ID, "error", err)
		return RedeemResult{}, fmt.Errorf("failed to redeem disable token: %w", err)
	}

	slog.Info("Device revoked through disable link", "user_id", consumed.UserID, "device_id", consumed.DeviceID, "token_id", consumed.ID)
	if s.recorder != nil {
		s.recorder.Record(ctx, securitylog.Event{
			UserID: securitylog.UserID(consumed.UserID),
			Type:   securitylog.EventDeviceRevoked,
			Metadata: map[string]any{
				"device_id": consumed.DeviceID.String(),
				"token_id":  consumed.ID.String(),
			},
		})
	}

	return RedeemResult{
		TokenID:  consumed.ID,
		UserID:   consumed.UserID,
		DeviceID: consumed.DeviceID,
	}, nil
}

// CleanupExpiredTokens deletes unused tokens that expired longer ago than the
// retention period
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, s.now().Add(-s.retention))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up disable tokens: %w", err)
	}
	if deleted > 0 {
		slog.Info("Expired disable tokens removed", "count", deleted)
	}
	return deleted, nil
}
