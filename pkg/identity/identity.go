// Package identity models the authenticated user handed to the login gate.
// Users are owned by the account subsystem; this package only reads them and
// creates them on first OAuth sign-in.
package identity

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

const DefaultRole = "user"

// User is the account record the gate and session claims read
type User struct {
	ID             int64   `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	SessionVersion int     `json:"session_version"`
	Image          *string `json:"image,omitempty"`
	ProviderImage  *string `json:"provider_image,omitempty"`
}

// Identity is the result of authentication. The set of implementations is
// closed: PasswordIdentity and OAuthIdentity.
type Identity interface {
	Provider() string
	isIdentity()
}

// PasswordIdentity is a user whose credentials were already verified
type PasswordIdentity struct {
	UserID int64
}

func (PasswordIdentity) Provider() string { return "credentials" }
func (PasswordIdentity) isIdentity()      {}

// OAuthIdentity is the profile returned by an OAuth provider exchange
type OAuthIdentity struct {
	ProviderName      string
	ProviderAccountID string
	Email             string
	EmailVerified     bool
	Name              string
	Image             *string
}

func (o OAuthIdentity) Provider() string { return o.ProviderName }
func (OAuthIdentity) isIdentity()        {}

// NormalizeEmail lower-cases and trims an address for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserDirectory is read access to the account subsystem
type UserDirectory interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateFromOAuth(ctx context.Context, o OAuthIdentity) (*User, error)
}

// CredentialVerifier checks an email/password pair. It returns
// ErrInvalidCredentials when they do not match.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*User, error)
}
