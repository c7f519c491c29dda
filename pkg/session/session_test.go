package session

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/trustgate/pkg/identity"
)

func strPtr(s string) *string { return &s }

func TestEnrich_ImagePriority(t *testing.T) {
	e := NewEnricher()

	tests := []struct {
		name     string
		custom   *string
		provider *string
		want     *string
	}{
		{"custom wins", strPtr("https://cdn/custom.png"), strPtr("https://idp/p.png"), strPtr("https://cdn/custom.png")},
		{"provider fallback", nil, strPtr("https://idp/p.png"), strPtr("https://idp/p.png")},
		{"empty custom falls back", strPtr(""), strPtr("https://idp/p.png"), strPtr("https://idp/p.png")},
		{"none", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := e.Enrich(identity.User{ID: 1, Image: tt.custom, ProviderImage: tt.provider}, "google")
			assert.Equal(t, tt.want, claims.Image)
		})
	}
}

func TestEnrich_CopiesUserFields(t *testing.T) {
	claims := NewEnricher().Enrich(identity.User{ID: 9, Email: "a@example.com", Role: "admin", SessionVersion: 3}, "credentials")
	assert.Equal(t, int64(9), claims.ID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, 3, claims.SessionVersion)
	assert.Equal(t, "credentials", claims.Provider)

	claims = NewEnricher().Enrich(identity.User{ID: 10}, "github")
	assert.Equal(t, identity.DefaultRole, claims.Role)
}

func TestRefresh(t *testing.T) {
	e := NewEnricher()
	user := identity.User{ID: 4, Name: "Old", Role: "user", SessionVersion: 1, ProviderImage: strPtr("https://idp/p.png")}
	claims := e.Enrich(user, "google")

	user.Role = "admin"
	user.SessionVersion = 2
	refreshed := e.Refresh(claims, user, ProfileUpdate{Name: strPtr("New"), Image: strPtr("https://cdn/me.png")})

	assert.Equal(t, int64(4), refreshed.ID)
	assert.Equal(t, 1, refreshed.SessionVersion)
	assert.Equal(t, "admin", refreshed.Role)
	assert.Equal(t, "New", refreshed.Name)
	assert.Equal(t, "https://cdn/me.png", *refreshed.Image)

	cleared := e.Refresh(refreshed, user, ProfileUpdate{Image: strPtr("")})
	assert.Equal(t, "https://idp/p.png", *cleared.Image)
}

func TestValidateVersion(t *testing.T) {
	user := identity.User{ID: 5, SessionVersion: 2}
	assert.NoError(t, ValidateVersion(Claims{ID: 5, SessionVersion: 2}, user))
	assert.ErrorIs(t, ValidateVersion(Claims{ID: 5, SessionVersion: 1}, user), ErrSessionRevoked)
	assert.ErrorIs(t, ValidateVersion(Claims{ID: 6, SessionVersion: 2}, user), ErrSessionRevoked)
}

func TestSigner_SignAndParse(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	signer := NewSigner(SignerConfig{Secret: "0123456789abcdef0123456789abcdef", Issuer: "trustgate", MaxAgeDays: 30},
		WithSignerClock(func() time.Time { return now }))

	token, expires, err := signer.Sign(Claims{ID: 12, Role: "user", SessionVersion: 4, Image: strPtr("https://cdn/x.png")})
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*24*time.Hour), expires)

	claims, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(12), claims.ID)
	assert.Equal(t, 4, claims.SessionVersion)
	assert.Equal(t, "12", claims.Subject)
	assert.Equal(t, "trustgate", claims.Issuer)

	other := NewSigner(SignerConfig{Secret: "another-secret-another-secret-xx"})
	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestSigner_Cookie(t *testing.T) {
	signer := NewSigner(SignerConfig{Secret: "0123456789abcdef0123456789abcdef", CookieSecure: true})
	rec := httptest.NewRecorder()
	expires := time.Now().Add(time.Hour)
	signer.SetSessionCookie(rec, "tok", expires)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
}
