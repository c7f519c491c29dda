package securitylog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType is an open taxonomy of authentication-relevant occurrences
type EventType string

const (
	EventLoginNewDevice            EventType = "LOGIN_NEW_DEVICE"
	EventLoginBlockedRevokedDevice EventType = "LOGIN_BLOCKED_REVOKED_DEVICE"
	EventDeviceRevoked             EventType = "DEVICE_REVOKED"
	EventOAuthAccountLinked        EventType = "OAUTH_ACCOUNT_LINKED"
)

// Event is what callers hand to the logger
type Event struct {
	UserID    *int64
	Type      EventType
	IP        string
	UserAgent string
	Metadata  map[string]any
}

// SecurityLog is a stored, write-once audit row
type SecurityLog struct {
	ID        uuid.UUID      `json:"id"`
	UserID    *int64         `json:"user_id,omitempty"`
	Type      EventType      `json:"type"`
	IP        *string        `json:"ip,omitempty"`
	UserAgent *string        `json:"user_agent,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// Repository is append-only
type Repository interface {
	Create(ctx context.Context, entry SecurityLog) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]SecurityLog, error)
}
