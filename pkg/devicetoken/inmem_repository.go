package devicetoken

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/trustgate/pkg/device"
)

// DeviceRevoker is the part of the device store a consumed token acts on
type DeviceRevoker interface {
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
}

// InMemRepository serializes every consumption behind one mutex, which makes
// mark-used and revoke atomic for in-process callers.
type InMemRepository struct {
	mu      sync.Mutex
	tokens  map[uuid.UUID]DisableToken
	devices DeviceRevoker
}

func NewInMemRepository(devices DeviceRevoker) *InMemRepository {
	return &InMemRepository{
		tokens:  make(map[uuid.UUID]DisableToken),
		devices: devices,
	}
}

func (r *InMemRepository) Create(ctx context.Context, token DisableToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.TokenHash == token.TokenHash {
			return errors.New("token hash already exists")
		}
	}
	r.tokens[token.ID] = token
	return nil
}

func (r *InMemRepository) GetByHash(ctx context.Context, tokenHash string) (*DisableToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.TokenHash == tokenHash {
			found := t
			return &found, nil
		}
	}
	return nil, ErrTokenNotFound
}

func (r *InMemRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) (DisableToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[id]
	if !ok {
		return DisableToken{}, ErrTokenNotFound
	}
	if t.UsedAt != nil {
		return DisableToken{}, ErrTokenAlreadyUsed
	}
	if t.IsExpired(at) {
		return DisableToken{}, ErrTokenExpired
	}

	if err := r.devices.Revoke(ctx, t.DeviceID, at); err != nil && !errors.Is(err, device.ErrDeviceAlreadyRevoked) {
		return DisableToken{}, fmt.Errorf("failed to revoke device: %w", err)
	}

	usedAt := at
	t.UsedAt = &usedAt
	r.tokens[id] = t
	return t, nil
}

func (r *InMemRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, t := range r.tokens {
		if t.UsedAt == nil && t.ExpiresAt.Before(before) {
			delete(r.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

// Count returns the number of stored tokens
func (r *InMemRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
