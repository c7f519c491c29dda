package device

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DeviceService handles trusted-device lookups and mutations
type DeviceService struct {
	deviceRepository DeviceRepository
	now              func() time.Time
}

// Option configures a DeviceService
type Option func(*DeviceService)

// WithClock overrides the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *DeviceService) {
		s.now = now
	}
}

// NewDeviceService creates a new device service with the given repository
func NewDeviceService(deviceRepository DeviceRepository, opts ...Option) *DeviceService {
	s := &DeviceService{
		deviceRepository: deviceRepository,
		now:              func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentState looks up the most recent row for the pair and derives its state
func (s *DeviceService) CurrentState(ctx context.Context, userID int64, deviceHash string) (*TrustedDevice, TrustState, error) {
	d, err := s.deviceRepository.FindCurrent(ctx, userID, deviceHash)
	if err != nil {
		return nil, StateUnknown, fmt.Errorf("failed to look up device state: %w", err)
	}
	return d, State(d), nil
}

// Trust records a new trusted device for the request. created is false when a
// concurrent login already inserted the active row for the same pair.
func (s *DeviceService) Trust(ctx context.Context, userID int64, rc RequestContext) (TrustedDevice, bool, error) {
	now := s.now()
	d, created, err := s.deviceRepository.CreateTrusted(ctx, TrustedDevice{
		ID:             uuid.New(),
		UserID:         userID,
		DeviceHash:     rc.DeviceHash(),
		UserAgent:      rc.UserAgent,
		AcceptLanguage: rc.AcceptLanguage,
		Timezone:       rc.Timezone,
		IP:             rc.IP,
		CreatedAt:      now,
		LastUsedAt:     now,
	})
	if err != nil {
		slog.Error("Failed to trust device", "user_id", userID, "error", err)
		return TrustedDevice{}, false, fmt.Errorf("failed to trust device: %w", err)
	}
	if created {
		slog.Info("New trusted device", "user_id", userID, "device_id", d.ID)
	}
	return d, created, nil
}

// Touch updates the last-used time and address of a trusted device
func (s *DeviceService) Touch(ctx context.Context, id uuid.UUID, ip string) (time.Time, error) {
	now := s.now()
	if err := s.deviceRepository.Touch(ctx, id, ip, now); err != nil {
		return time.Time{}, fmt.Errorf("failed to touch device: %w", err)
	}
	slog.Debug("Trusted device used", "device_id", id)
	return now, nil
}

// Revoke withdraws trust from a device. Revocation is terminal.
func (s *DeviceService) Revoke(ctx context.Context, id uuid.UUID) error {
	if err := s.deviceRepository.Revoke(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to revoke device: %w", err)
	}
	slog.Info("Trusted device revoked", "device_id", id)
	return nil
}

// GetDevice returns a device by id or ErrDeviceNotFound
func (s *DeviceService) GetDevice(ctx context.Context, id uuid.UUID) (TrustedDevice, error) {
	d, err := s.deviceRepository.GetByID(ctx, id)
	if err != nil {
		return TrustedDevice{}, fmt.Errorf("failed to get device: %w", err)
	}
	if d == nil {
		return TrustedDevice{}, ErrDeviceNotFound
	}
	return *d, nil
}

// ListUserDevices returns every device row for a user, newest first
func (s *DeviceService) ListUserDevices(ctx context.Context, userID int64) ([]TrustedDevice, error) {
	devices, err := s.deviceRepository.ListByUser(ctx, userID)
	if err != nil {
		slog.Error("Failed to list devices", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	slog.Debug("Found devices for user", "user_id", userID, "count", len(devices))
	return devices, nil
}
