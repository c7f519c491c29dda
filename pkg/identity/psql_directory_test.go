package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/trustgate/pkg/db/dbtest"
	"github.com/tendant/trustgate/pkg/identity"
)

func TestPostgresDirectory(t *testing.T) {
	pool := dbtest.NewPool(t)
	dir := identity.NewPostgresDirectory(pool)
	ctx := context.Background()

	created, err := dir.CreateFromOAuth(ctx, identity.OAuthIdentity{ProviderName: "google", Email: "Carol@example.com", Name: "Carol"})
	require.NoError(t, err)
	assert.Equal(t, identity.DefaultRole, created.Role)

	byEmail, err := dir.FindByEmail(ctx, "carol@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := dir.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carol", byID.Name)

	_, err = dir.FindByID(ctx, created.ID+1000)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	_, err = dir.CreateFromOAuth(ctx, identity.OAuthIdentity{Email: "carol@example.com"})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
}
