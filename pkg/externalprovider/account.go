package externalprovider

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound      = errors.New("provider account not found")
	ErrAccountAlreadyLinked = errors.New("provider account already linked")
	ErrUnverifiedEmail      = errors.New("provider email is not verified and belongs to an existing account")
	ErrMissingAccountID     = errors.New("provider account id is required")
)

// ProviderAccount ties one provider login to a local user
type ProviderAccount struct {
	ID                uuid.UUID `json:"id"`
	UserID            int64     `json:"user_id"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// AccountRepository stores provider links. (provider, provider_account_id) is unique.
type AccountRepository interface {
	// FindByProviderAccount returns ErrAccountNotFound when no link exists
	FindByProviderAccount(ctx context.Context, provider, providerAccountID string) (*ProviderAccount, error)
	// Create returns ErrAccountAlreadyLinked on a uniqueness conflict
	Create(ctx context.Context, account ProviderAccount) error
	ListByUser(ctx context.Context, userID int64) ([]ProviderAccount, error)
}
