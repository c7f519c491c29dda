// Package session builds and signs the session token issued after the device
// trust gate allows a login.
package session

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tendant/trustgate/pkg/identity"
)

var ErrSessionRevoked = errors.New("session revoked")

// Claims is the session payload the rest of the application reads
type Claims struct {
	ID             int64   `json:"id"`
	Email          string  `json:"email,omitempty"`
	Name           string  `json:"name,omitempty"`
	Role           string  `json:"role"`
	SessionVersion int     `json:"session_version"`
	Image          *string `json:"image"`
	Provider       string  `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// ProfileUpdate is a client-initiated refresh of display fields
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Image *string `json:"image,omitempty"`
}

// ValidateVersion rejects claims minted before the user's session version was bumped
func ValidateVersion(claims Claims, user identity.User) error {
	if claims.ID != user.ID || claims.SessionVersion != user.SessionVersion {
		return ErrSessionRevoked
	}
	return nil
}
