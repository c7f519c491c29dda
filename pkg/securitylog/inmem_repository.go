package securitylog

import (
	"context"
	"sync"
)

// InMemRepository keeps security logs in insertion order
type InMemRepository struct {
	mu      sync.Mutex
	entries []SecurityLog
}

func NewInMemRepository() *InMemRepository {
	return &InMemRepository{}
}

func (r *InMemRepository) Create(ctx context.Context, entry SecurityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *InMemRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]SecurityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]SecurityLog, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.UserID == nil || *e.UserID != userID {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// All returns a copy of every stored entry, oldest first
func (r *InMemRepository) All() []SecurityLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SecurityLog(nil), r.entries...)
}

// CountByType returns how many entries of the given type were stored
func (r *InMemRepository) CountByType(eventType EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
