package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/glossa/pkg/core"
	"github.com/aretw0/glossa/pkg/session"
)

// mockProvider is a hand-written core.AuthProvider.
type mockProvider struct {
	current       *core.User
	currentErr    error
	confirmSignUp bool
	signOutErr    error
	signOuts      int
	profiles      []map[string]string
}

func (m *mockProvider) SignIn(_ context.Context, email, password string) (core.User, error) {
	if password != "secret1" {
		return core.User{}, core.ErrInvalidCredentials
	}
	u := core.User{ID: "u-" + email, Email: email, DisplayName: core.DisplayNameFor(email, nil)}
	m.current = &u
	return u, nil
}

func (m *mockProvider) SignUp(_ context.Context, email, _ string, profile map[string]string) (core.SignUpResult, error) {
	m.profiles = append(m.profiles, profile)
	u := core.User{ID: "u-" + email, Email: email, DisplayName: core.DisplayNameFor(email, profile)}
	if m.confirmSignUp {
		return core.SignUpResult{User: u, ConfirmationRequired: true, Token: "tok"}, nil
	}
	m.current = &u
	return core.SignUpResult{User: u}, nil
}

func (m *mockProvider) Confirm(context.Context, string) (core.User, error) {
	return core.User{}, errors.New("not implemented")
}

func (m *mockProvider) SignOut(context.Context) error {
	m.signOuts++
	if m.signOutErr != nil {
		return m.signOutErr
	}
	m.current = nil
	return nil
}

func (m *mockProvider) Current(context.Context) (core.User, error) {
	if m.currentErr != nil {
		return core.User{}, m.currentErr
	}
	if m.current == nil {
		return core.User{}, core.ErrNotSignedIn
	}
	return *m.current, nil
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("Restores persisted user", func(t *testing.T) {
		p := &mockProvider{current: &core.User{ID: "u1", Email: "ana@example.com"}}
		s, err := session.New(ctx, p)
		require.NoError(t, err)
		u, ok := s.User()
		require.True(t, ok)
		assert.Equal(t, "u1", u.ID)

		owner, err := s.OwnerID()
		require.NoError(t, err)
		assert.Equal(t, "u1", owner)
	})

	t.Run("Signed out", func(t *testing.T) {
		s, err := session.New(ctx, &mockProvider{})
		require.NoError(t, err)
		_, ok := s.User()
		assert.False(t, ok)
		_, err = s.OwnerID()
		assert.ErrorIs(t, err, core.ErrNotSignedIn)
	})

	t.Run("Provider failure", func(t *testing.T) {
		boom := errors.New("db locked")
		_, err := session.New(ctx, &mockProvider{currentErr: boom})
		assert.ErrorIs(t, err, boom)
	})
}

func TestListeners(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{}
	s, err := session.New(ctx, p)
	require.NoError(t, err)

	var changes []session.Change
	unsubscribe := s.Subscribe(func(c session.Change) { changes = append(changes, c) })

	// 1. Sign in notifies
	u, err := s.SignIn(ctx, "maria@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "maria", u.DisplayName)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].SignedIn)
	assert.Equal(t, u.ID, changes[0].User.ID)

	// 2. Failed sign in does not notify
	_, err = s.SignIn(ctx, "maria@example.com", "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	assert.Len(t, changes, 1)

	// 3. Sign out notifies
	require.NoError(t, s.SignOut(ctx))
	require.Len(t, changes, 2)
	assert.False(t, changes[1].SignedIn)

	// 4. Unsubscribed listeners stop receiving
	unsubscribe()
	unsubscribe()
	_, err = s.SignIn(ctx, "maria@example.com", "secret1")
	require.NoError(t, err)
	assert.Len(t, changes, 2)
	assert.Equal(t, 0, s.State().(session.SessionState).Listeners)
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("Signs in without confirmation", func(t *testing.T) {
		p := &mockProvider{}
		s, err := session.New(ctx, p)
		require.NoError(t, err)

		pending, err := s.SignUp(ctx, "joao@example.com", "secret1", " João Silva ")
		require.NoError(t, err)
		assert.False(t, pending)
		u, ok := s.User()
		require.True(t, ok)
		assert.Equal(t, "João Silva", u.DisplayName)
		assert.Equal(t, "João Silva", p.profiles[0]["full_name"])
	})

	t.Run("Confirmation required", func(t *testing.T) {
		p := &mockProvider{confirmSignUp: true}
		s, err := session.New(ctx, p)
		require.NoError(t, err)

		notified := false
		s.Subscribe(func(session.Change) { notified = true })

		pending, err := s.SignUp(ctx, "joao@example.com", "secret1", "")
		require.NoError(t, err)
		assert.True(t, pending)
		_, ok := s.User()
		assert.False(t, ok)
		assert.False(t, notified)
		assert.Empty(t, p.profiles[0])
	})
}

func TestSignOutFailureKeepsUser(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{current: &core.User{ID: "u1"}, signOutErr: errors.New("io")}
	s, err := session.New(ctx, p)
	require.NoError(t, err)

	assert.Error(t, s.SignOut(ctx))
	_, ok := s.User()
	assert.True(t, ok)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s, err := session.New(ctx, &mockProvider{})
	require.NoError(t, err)

	called := false
	s.Subscribe(func(session.Change) { called = true })
	s.Close()

	_, err = s.SignIn(ctx, "a@example.com", "secret1")
	assert.ErrorIs(t, err, session.ErrClosed)
	assert.False(t, called)

	st := s.State().(session.SessionState)
	assert.True(t, st.Closed)
	assert.Zero(t, st.Listeners)
	assert.Equal(t, "session", s.ComponentType())
}
