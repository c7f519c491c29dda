package session

import (
	"github.com/tendant/trustgate/pkg/identity"
)

// Enricher derives session claims from a user record
type Enricher struct{}

func NewEnricher() Enricher {
	return Enricher{}
}

// Enrich builds claims for a fresh login. provider is "credentials" or the
// OAuth provider name.
func (Enricher) Enrich(user identity.User, provider string) Claims {
	return Claims{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           resolveRole(user.Role),
		SessionVersion: user.SessionVersion,
		Image:          resolveImage(user),
		Provider:       provider,
	}
}

// Refresh re-reads the mutable fields from a reloaded user and applies the
// client update. ID, session version and provider are kept from the claims.
func (Enricher) Refresh(claims Claims, user identity.User, update ProfileUpdate) Claims {
	claims.Email = user.Email
	claims.Name = user.Name
	claims.Role = resolveRole(user.Role)
	claims.Image = resolveImage(user)

	if update.Name != nil {
		claims.Name = *update.Name
	}
	if update.Image != nil {
		image := *update.Image
		if image == "" {
			claims.Image = user.ProviderImage
		} else {
			claims.Image = &image
		}
	}
	return claims
}

func resolveRole(role string) string {
	if role == "" {
		return identity.DefaultRole
	}
	return role
}

// custom upload, then provider image, then nothing
func resolveImage(user identity.User) *string {
	if user.Image != nil && *user.Image != "" {
		image := *user.Image
		return &image
	}
	if user.ProviderImage != nil && *user.ProviderImage != "" {
		image := *user.ProviderImage
		return &image
	}
	return nil
}
