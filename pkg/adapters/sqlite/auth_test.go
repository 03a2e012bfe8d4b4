package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aretw0/glossa/pkg/adapters/sqlite"
	"github.com/aretw0/glossa/pkg/core"
)

func TestAuth_SignUpWithoutConfirmation(t *testing.T) {
	db := openDB(t)
	auth := sqlite.NewAuth(db, sqlite.AuthConfig{Cost: bcrypt.MinCost})
	ctx := context.Background()

	// 1. Sign up signs in immediately
	res, err := auth.SignUp(ctx, "  Maria@Example.com ", "secret1", map[string]string{"full_name": "Maria Souza"})
	require.NoError(t, err)
	assert.False(t, res.ConfirmationRequired)
	assert.Equal(t, "maria@example.com", res.User.Email)
	assert.Equal(t, "Maria Souza", res.User.DisplayName)

	// 2. Session is restored from the database
	cur, err := auth.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, cur.ID)
	assert.Equal(t, "Maria Souza", cur.DisplayName)

	// 3. Sign out clears it
	require.NoError(t, auth.SignOut(ctx))
	_, err = auth.Current(ctx)
	assert.ErrorIs(t, err, core.ErrNotSignedIn)

	// 4. Sign in again
	u, err := auth.SignIn(ctx, "MARIA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, u.ID)
}

func TestAuth_Errors(t *testing.T) {
	db := openDB(t)
	auth := sqlite.NewAuth(db, sqlite.AuthConfig{Cost: bcrypt.MinCost})
	ctx := context.Background()

	_, err := auth.SignUp(ctx, "joao@example.com", "secret1", nil)
	require.NoError(t, err)

	t.Run("Duplicate email", func(t *testing.T) {
		_, err := auth.SignUp(ctx, "JOAO@example.com", "another1", nil)
		assert.ErrorIs(t, err, core.ErrEmailTaken)
	})

	t.Run("Short password", func(t *testing.T) {
		_, err := auth.SignUp(ctx, "new@example.com", "123", nil)
		assert.Error(t, err)
	})

	t.Run("Invalid email", func(t *testing.T) {
		_, err := auth.SignUp(ctx, "not-an-email", "secret1", nil)
		assert.Error(t, err)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, err := auth.SignIn(ctx, "joao@example.com", "wrong-pass")
		assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	})

	t.Run("Unknown email", func(t *testing.T) {
		_, err := auth.SignIn(ctx, "ghost@example.com", "secret1")
		assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	})

	t.Run("Display name falls back to email local part", func(t *testing.T) {
		u, err := auth.SignIn(ctx, "joao@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "joao", u.DisplayName)
	})
}

func TestAuth_Confirmation(t *testing.T) {
	db := openDB(t)
	auth := sqlite.NewAuth(db, sqlite.AuthConfig{RequireConfirmation: true, Cost: bcrypt.MinCost})
	ctx := context.Background()

	res, err := auth.SignUp(ctx, "ana@example.com", "secret1", nil)
	require.NoError(t, err)
	assert.True(t, res.ConfirmationRequired)
	require.NotEmpty(t, res.Token)

	t.Run("No session before confirmation", func(t *testing.T) {
		_, err := auth.Current(ctx)
		assert.ErrorIs(t, err, core.ErrNotSignedIn)
	})

	t.Run("Sign in blocked until confirmed", func(t *testing.T) {
		_, err := auth.SignIn(ctx, "ana@example.com", "secret1")
		assert.ErrorIs(t, err, core.ErrEmailNotConfirmed)
	})

	t.Run("Unknown token", func(t *testing.T) {
		_, err := auth.Confirm(ctx, "bogus")
		assert.ErrorIs(t, err, sqlite.ErrInvalidToken)
	})

	t.Run("Confirm then sign in", func(t *testing.T) {
		u, err := auth.Confirm(ctx, res.Token)
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, u.ID)

		_, err = auth.Confirm(ctx, res.Token)
		assert.ErrorIs(t, err, sqlite.ErrInvalidToken, "tokens are single use")

		_, err = auth.SignIn(ctx, "ana@example.com", "secret1")
		require.NoError(t, err)
	})
}
