package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-assistant/backend/internal/storage"
	"github.com/booking-assistant/backend/internal/storage/models"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db, nil))

	return NewProvider(storage.NewCredentialRepository(db), nil)
}

func TestProvider_SignInAndOut(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	token, ok, err := p.AccessToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)

	status, err := p.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Authenticated)
	assert.Nil(t, status.User)

	require.NoError(t, p.Save(ctx, &models.Credential{
		AccessToken: " tok ",
		User:        models.UserProfile{Email: "ada@example.com", Name: "Ada"},
	}))

	token, ok, err = p.AccessToken(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)

	status, err = p.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Authenticated)
	require.NotNil(t, status.User)
	assert.Equal(t, "ada@example.com", status.User.Email)

	require.NoError(t, p.Logout(ctx))
	_, ok, err = p.AccessToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProvider_SaveRequiresToken(t *testing.T) {
	p := newTestProvider(t)

	err := p.Save(context.Background(), &models.Credential{AccessToken: "   "})
	assert.ErrorIs(t, err, ErrMissingToken)
}
