// Package securitylog is the append-only audit trail for authentication
// events such as new-device logins and blocked revoked devices.
package securitylog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Recorder is implemented by Logger. Record never fails from the caller's view.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Logger persists security events. Write failures are logged and dropped.
type Logger struct {
	repo Repository
	now  func() time.Time
}

type LoggerOption func(*Logger)

func WithClock(now func() time.Time) LoggerOption {
	return func(l *Logger) {
		l.now = now
	}
}

func NewLogger(repo Repository, opts ...LoggerOption) *Logger {
	l := &Logger{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record writes one security log entry. Best effort.
func (l *Logger) Record(ctx context.Context, event Event) {
	if l == nil || l.repo == nil {
		return
	}

	entry := SecurityLog{
		ID:        uuid.New(),
		UserID:    event.UserID,
		Type:      event.Type,
		IP:        optional(event.IP),
		UserAgent: optional(event.UserAgent),
		Metadata:  event.Metadata,
		CreatedAt: l.now(),
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}

	if err := l.repo.Create(ctx, entry); err != nil {
		slog.Error("Failed to record security event", "type", event.Type, "user_id", event.UserID, "error", err)
		return
	}
	slog.Debug("Security event recorded", "type", event.Type, "id", entry.ID)
}

// ListByUser returns the newest entries for a user
func (l *Logger) ListByUser(ctx context.Context, userID int64, limit int) ([]SecurityLog, error) {
	return l.repo.ListByUser(ctx, userID, limit)
}

// UserID is a helper for building events
func UserID(id int64) *int64 {
	return &id
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
