package externalprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/trustgate/pkg/identity"
	"github.com/tendant/trustgate/pkg/securitylog"
)

// LinkService resolves an OAuth profile to a local user
type LinkService struct {
	accounts AccountRepository
	users    identity.UserDirectory
	events   securitylog.Recorder
	now      func() time.Time
}

type LinkOption func(*LinkService)

func WithLinkClock(now func() time.Time) LinkOption {
	return func(s *LinkService) {
		s.now = now
	}
}

func NewLinkService(accounts AccountRepository, users identity.UserDirectory, events securitylog.Recorder, opts ...LinkOption) *LinkService {
	s := &LinkService{
		accounts: accounts,
		users:    users,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconcile returns the local user for an OAuth profile, linking or signing
// up as needed. Any error must abort the login.
func (s *LinkService) Reconcile(ctx context.Context, o identity.OAuthIdentity) (*identity.User, error) {
	if o.ProviderAccountID == "" {
		return nil, ErrMissingAccountID
	}

	user, err := s.linkedUser(ctx, o)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, o.Email)
	switch {
	case err == nil:
		if !o.EmailVerified {
			slog.Warn("Refusing to link unverified provider email", "provider", o.ProviderName, "user_id", existing.ID)
			return nil, ErrUnverifiedEmail
		}
		if err := s.link(ctx, existing.ID, o); err != nil {
			return nil, err
		}
		if s.events != nil {
			s.events.Record(ctx, securitylog.Event{
				UserID:   securitylog.UserID(existing.ID),
				Type:     securitylog.EventOAuthAccountLinked,
				Metadata: map[string]any{"provider": o.ProviderName},
			})
		}
		slog.Info("Linked provider account to existing user", "provider", o.ProviderName, "user_id", existing.ID)
		return existing, nil

	case errors.Is(err, identity.ErrUserNotFound):
		created, err := s.users.CreateFromOAuth(ctx, o)
		if err != nil {
			return nil, fmt.Errorf("failed to create user from provider profile: %w", err)
		}
		if err := s.link(ctx, created.ID, o); err != nil {
			return nil, err
		}
		slog.Info("Created user from provider profile", "provider", o.ProviderName, "user_id", created.ID)
		return created, nil

	default:
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
}

func (s *LinkService) linkedUser(ctx context.Context, o identity.OAuthIdentity) (*identity.User, error) {
	account, err := s.accounts.FindByProviderAccount(ctx, o.ProviderName, o.ProviderAccountID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, account.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load linked user: %w", err)
	}
	return user, nil
}

func (s *LinkService) link(ctx context.Context, userID int64, o identity.OAuthIdentity) error {
	err := s.accounts.Create(ctx, ProviderAccount{
		ID:                uuid.New(),
		UserID:            userID,
		Provider:          o.ProviderName,
		ProviderAccountID: o.ProviderAccountID,
		CreatedAt:         s.now(),
	})
	if errors.Is(err, ErrAccountAlreadyLinked) {
		// a concurrent login linked it first; it must point at the same user
		account, findErr := s.accounts.FindByProviderAccount(ctx, o.ProviderName, o.ProviderAccountID)
		if findErr != nil {
			return fmt.Errorf("failed to reload provider account: %w", findErr)
		}
		if account.UserID != userID {
			return ErrAccountAlreadyLinked
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to link provider account: %w", err)
	}
	return nil
}

// LinkedAccounts lists the provider accounts of a user
func (s *LinkService) LinkedAccounts(ctx context.Context, userID int64) ([]ProviderAccount, error) {
	return s.accounts.ListByUser(ctx, userID)
}
