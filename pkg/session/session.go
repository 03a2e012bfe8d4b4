// Package session holds the authenticated user as an explicit context object.
//
// A Session is created at process start from the provider's persisted state,
// passed to whatever needs the owner id, and closed on shutdown. Consumers that
// must react to sign-in and sign-out register a listener with Subscribe.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/glossa/pkg/core"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session is closed")

// Change is delivered to listeners after every sign-in or sign-out.
type Change struct {
	User     core.User
	SignedIn bool
}

// Listener receives session changes.
type Listener func(Change)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger of the session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session tracks the signed-in user.
type Session struct {
	provider core.AuthProvider
	logger   *slog.Logger

	mu        sync.Mutex
	user      *core.User
	listeners map[int]Listener
	nextID    int
	closed    bool
}

// New creates a session and restores the provider's current user, if any.
func New(ctx context.Context, provider core.AuthProvider, opts ...Option) (*Session, error) {
	s := &Session{
		provider:  provider,
		logger:    slog.New(slog.DiscardHandler),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")

	u, err := provider.Current(ctx)
	switch {
	case errors.Is(err, core.ErrNotSignedIn):
	case err != nil:
		return nil, err
	default:
		s.user = &u
		s.logger.Debug("session restored", "user", u.ID)
	}
	return s, nil
}

// User returns the signed-in user.
func (s *Session) User() (core.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return core.User{}, false
	}
	return *s.user, true
}

// OwnerID returns the id of the signed-in user or ErrNotSignedIn.
func (s *Session) OwnerID() (string, error) {
	u, ok := s.User()
	if !ok {
		return "", core.ErrNotSignedIn
	}
	return u.ID, nil
}

// SignIn authenticates and notifies listeners.
func (s *Session) SignIn(ctx context.Context, email, password string) (core.User, error) {
	if s.isClosed() {
		return core.User{}, ErrClosed
	}
	u, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return core.User{}, err
	}
	s.set(&u)
	return u, nil
}

// SignUp registers an account. It reports whether the account must be
// confirmed before signing in; otherwise the user is signed in.
func (s *Session) SignUp(ctx context.Context, email, password, fullName string) (bool, error) {
	if s.isClosed() {
		return false, ErrClosed
	}
	profile := map[string]string{}
	if name := strings.TrimSpace(fullName); name != "" {
		profile["full_name"] = name
	}
	res, err := s.provider.SignUp(ctx, email, password, profile)
	if err != nil {
		return false, err
	}
	if res.ConfirmationRequired {
		s.logger.Info("account awaiting confirmation", "email", res.User.Email)
		return true, nil
	}
	u := res.User
	s.set(&u)
	return false, nil
}

// SignOut clears the session and notifies listeners.
func (s *Session) SignOut(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := s.provider.SignOut(ctx); err != nil {
		return err
	}
	s.set(nil)
	return nil
}

// Subscribe registers fn for session changes and returns the function that
// removes it. Listeners run on the goroutine that changed the session.
func (s *Session) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Close drops every listener. The session no longer changes afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = make(map[int]Listener)
}

func (s *Session) set(u *core.User) {
	s.mu.Lock()
	s.user = u
	change := Change{SignedIn: u != nil}
	if u != nil {
		change.User = *u
	}
	listeners := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	s.logger.Debug("session changed", "signed_in", change.SignedIn, "user", change.User.ID)
	for _, fn := range listeners {
		fn(change)
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SessionState exposes internal state for observability.
type SessionState struct {
	SignedIn  bool   `json:"signed_in"`
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Listeners int    `json:"listeners"`
	Closed    bool   `json:"closed"`
}

// State implements introspection.Introspectable.
func (s *Session) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SessionState{
		SignedIn:  s.user != nil,
		Listeners: len(s.listeners),
		Closed:    s.closed,
	}
	if s.user != nil {
		st.UserID = s.user.ID
		st.Email = s.user.Email
	}
	return st
}

// ComponentType implements introspection.Component.
func (s *Session) ComponentType() string {
	return "session"
}

var _ introspection.Introspectable = (*Session)(nil)
var _ introspection.Component = (*Session)(nil)
