package device

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDeviceNotFound       = errors.New("trusted device not found")
	ErrDeviceAlreadyRevoked = errors.New("trusted device already revoked")
)

// TrustState is the trust relationship derived from the most recent row for
// a (user, device hash) pair
type TrustState string

const (
	StateUnknown TrustState = "unknown"
	StateTrusted TrustState = "trusted"
	StateRevoked TrustState = "revoked"
)

// TrustedDevice is one (user, device class) trust relationship
type TrustedDevice struct {
	ID             uuid.UUID  `json:"id"`
	UserID         int64      `json:"user_id"`
	DeviceHash     string     `json:"device_hash"`
	UserAgent      string     `json:"user_agent"`
	AcceptLanguage string     `json:"accept_language"`
	Timezone       string     `json:"timezone"`
	IP             string     `json:"ip"`
	CreatedAt      time.Time  `json:"created_at"`
	LastUsedAt     time.Time  `json:"last_used_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

// IsRevoked reports whether trust in the device has been withdrawn
func (d *TrustedDevice) IsRevoked() bool {
	return d.RevokedAt != nil
}

// State derives the trust state from a lookup result, which may be nil
func State(d *TrustedDevice) TrustState {
	switch {
	case d == nil:
		return StateUnknown
	case d.IsRevoked():
		return StateRevoked
	default:
		return StateTrusted
	}
}

// DeviceRepository defines the storage operations for trusted devices
type DeviceRepository interface {
	// FindCurrent returns the most recent row for the pair, or nil when there is none
	FindCurrent(ctx context.Context, userID int64, deviceHash string) (*TrustedDevice, error)
	// CreateTrusted inserts an active row. When an active row already exists for the
	// pair it is touched and returned instead, and created is false.
	CreateTrusted(ctx context.Context, device TrustedDevice) (stored TrustedDevice, created bool, err error)
	// Touch updates an active row. A revoked row is left unchanged and
	// ErrDeviceAlreadyRevoked is returned.
	Touch(ctx context.Context, id uuid.UUID, ip string, at time.Time) error
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*TrustedDevice, error)
	ListByUser(ctx context.Context, userID int64) ([]TrustedDevice, error)
}
