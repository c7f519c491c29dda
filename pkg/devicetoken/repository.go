package devicetoken

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DisableToken is the stored half of a device-disable capability. The raw
// token is never stored.
type DisableToken struct {
	ID        uuid.UUID  `json:"id"`
	UserID    int64      `json:"user_id"`
	DeviceID  uuid.UUID  `json:"device_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsExpired reports whether the token is past its expiry at the given time
func (t *DisableToken) IsExpired(at time.Time) bool {
	return at.After(t.ExpiresAt)
}

type Repository interface {
	Create(ctx context.Context, token DisableToken) error
	// GetByHash returns ErrTokenNotFound when no token has the digest
	GetByHash(ctx context.Context, tokenHash string) (*DisableToken, error)
	// Consume marks the token used and revokes its device in one atomic step.
	// It fails with ErrTokenAlreadyUsed or ErrTokenExpired when the token can
	// no longer be consumed at the given time, with nothing changed.
	Consume(ctx context.Context, id uuid.UUID, at time.Time) (DisableToken, error)
	// DeleteExpired removes unused tokens that expired before the cutoff
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
