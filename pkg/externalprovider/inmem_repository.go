package externalprovider

import (
	"context"
	"sort"
	"sync"
)

type accountKey struct {
	provider string
	id       string
}

// InMemAccountRepository implements AccountRepository with a map
type InMemAccountRepository struct {
	mu       sync.RWMutex
	accounts map[accountKey]ProviderAccount
}

func NewInMemAccountRepository() *InMemAccountRepository {
	return &InMemAccountRepository{accounts: make(map[accountKey]ProviderAccount)}
}

func (r *InMemAccountRepository) FindByProviderAccount(ctx context.Context, provider, providerAccountID string) (*ProviderAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[accountKey{provider, providerAccountID}]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

func (r *InMemAccountRepository) Create(ctx context.Context, account ProviderAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := accountKey{account.Provider, account.ProviderAccountID}
	if _, exists := r.accounts[key]; exists {
		return ErrAccountAlreadyLinked
	}
	r.accounts[key] = account
	return nil
}

func (r *InMemAccountRepository) ListByUser(ctx context.Context, userID int64) ([]ProviderAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []ProviderAccount
	for _, a := range r.accounts {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
