package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_EnsureAndGrantAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.Users.EnsureUser(ctx, "", "nobody")
	assert.ErrorIs(t, err, common.ErrorValidation)

	u, err := f.Users.EnsureUser(ctx, artistID, "painter")
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)

	err = f.Users.GrantAdmin(ctx, clientID, artistID, true)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	require.NoError(t, f.Users.GrantAdmin(ctx, adminID, artistID, true))
	ok, err := f.Users.IsAdmin(ctx, artistID)
	require.NoError(t, err)
	assert.True(t, ok)

	u, err = f.Users.EnsureUser(ctx, artistID, "painter")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin, "upsert keeps the flag")

	err = f.Users.GrantAdmin(ctx, adminID, "ghost", true)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, f.Users.SetAdmin(ctx, artistID, false))
	got, err := f.Users.GetUser(ctx, artistID)
	require.NoError(t, err)
	assert.False(t, got.IsAdmin)
}
