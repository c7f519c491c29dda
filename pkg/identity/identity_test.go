package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityVariants(t *testing.T) {
	var id Identity = PasswordIdentity{UserID: 3}
	assert.Equal(t, "credentials", id.Provider())

	id = OAuthIdentity{ProviderName: "google", Email: "a@example.com"}
	assert.Equal(t, "google", id.Provider())
}

func TestInMemDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewInMemDirectory(User{ID: 5, Email: "Alice@Example.com", Role: "admin"})

	u, err := dir.FindByEmail(ctx, " alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(5), u.ID)

	_, err = dir.FindByID(ctx, 99)
	assert.ErrorIs(t, err, ErrUserNotFound)

	image := "https://cdn.example.com/bob.png"
	created, err := dir.CreateFromOAuth(ctx, OAuthIdentity{ProviderName: "github", Email: "Bob@example.com", Name: "Bob", Image: &image})
	require.NoError(t, err)
	assert.Equal(t, int64(6), created.ID)
	assert.Equal(t, DefaultRole, created.Role)
	assert.Equal(t, "bob@example.com", created.Email)
	assert.Nil(t, created.Image)
	assert.Equal(t, &image, created.ProviderImage)

	_, err = dir.CreateFromOAuth(ctx, OAuthIdentity{Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}
