package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aretw0/glossa/pkg/core"
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 6

// ErrInvalidToken is returned by Confirm for an unknown confirmation token.
var ErrInvalidToken = errors.New("invalid confirmation token")

// AuthConfig configures the account provider.
type AuthConfig struct {
	// RequireConfirmation holds new accounts until Confirm is called.
	RequireConfirmation bool
	// Cost is the bcrypt cost. Zero means bcrypt.DefaultCost.
	Cost int
}

// Auth implements core.AuthProvider on top of the users and auth_session tables.
// At most one session is persisted: the one of the last sign-in.
type Auth struct {
	db  *DB
	cfg AuthConfig
}

// NewAuth creates the account provider. The schema must be initialized.
func NewAuth(db *DB, cfg AuthConfig) *Auth {
	if cfg.Cost == 0 {
		cfg.Cost = bcrypt.DefaultCost
	}
	return &Auth{db: db, cfg: cfg}
}

// SignUp registers an account. Without required confirmation the new user
// is signed in at once.
func (a *Auth) SignUp(ctx context.Context, email, password string, profile map[string]string) (core.SignUpResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return core.SignUpResult{}, err
	}
	if len(password) < MinPasswordLength {
		return core.SignUpResult{}, fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	var exists int
	if err := a.db.conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&exists); err != nil {
		return core.SignUpResult{}, fmt.Errorf("failed to check email: %w", err)
	}
	if exists > 0 {
		return core.SignUpResult{}, core.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cfg.Cost)
	if err != nil {
		return core.SignUpResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	fullName := strings.TrimSpace(profile["full_name"])
	user := core.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: core.DisplayNameFor(email, profile),
	}

	var token sql.NullString
	if a.cfg.RequireConfirmation {
		token = sql.NullString{String: uuid.NewString(), Valid: true}
	}

	_, err = a.db.conn.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, confirmed, confirm_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, email, string(hash), fullName, !a.cfg.RequireConfirmation, token, formatTime(a.db.now()))
	if err != nil {
		return core.SignUpResult{}, fmt.Errorf("failed to create user: %w", err)
	}

	if a.cfg.RequireConfirmation {
		return core.SignUpResult{User: user, ConfirmationRequired: true, Token: token.String}, nil
	}
	if err := a.persistSession(ctx, user.ID); err != nil {
		return core.SignUpResult{}, err
	}
	return core.SignUpResult{User: user}, nil
}

// Confirm marks the account holding token as confirmed.
func (a *Auth) Confirm(ctx context.Context, token string) (core.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return core.User{}, ErrInvalidToken
	}

	user, err := scanUser(a.db.conn.QueryRowContext(ctx,
		`SELECT id, email, full_name FROM users WHERE confirm_token = ?`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrInvalidToken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("failed to look up token: %w", err)
	}

	res, err := a.db.conn.ExecContext(ctx,
		`UPDATE users SET confirmed = 1, confirm_token = NULL WHERE id = ? AND confirm_token = ?`, user.ID, token)
	if err != nil {
		return core.User{}, fmt.Errorf("failed to confirm user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.User{}, ErrInvalidToken
	}
	return user, nil
}

// SignIn verifies the credentials and persists the session.
func (a *Auth) SignIn(ctx context.Context, email, password string) (core.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return core.User{}, core.ErrInvalidCredentials
	}

	var (
		user      core.User
		hash      string
		fullName  sql.NullString
		confirmed bool
	)
	err = a.db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, full_name, confirmed FROM users WHERE email = ?`, email).
		Scan(&user.ID, &user.Email, &hash, &fullName, &confirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return core.User{}, core.ErrInvalidCredentials
	}
	if !confirmed {
		return core.User{}, core.ErrEmailNotConfirmed
	}

	user.DisplayName = core.DisplayNameFor(user.Email, map[string]string{"full_name": fullName.String})
	if err := a.persistSession(ctx, user.ID); err != nil {
		return core.User{}, err
	}
	return user, nil
}

// SignOut clears the persisted session.
func (a *Auth) SignOut(ctx context.Context) error {
	if _, err := a.db.conn.ExecContext(ctx, `DELETE FROM auth_session`); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// Current returns the user of the persisted session.
func (a *Auth) Current(ctx context.Context) (core.User, error) {
	row := a.db.conn.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.full_name
		FROM auth_session s JOIN users u ON u.id = s.user_id
		WHERE s.slot = 1`)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotSignedIn
	}
	return u, err
}

func (a *Auth) persistSession(ctx context.Context, userID string) error {
	_, err := a.db.conn.ExecContext(ctx, `
		INSERT INTO auth_session (slot, user_id, signed_in_at) VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET user_id = excluded.user_id, signed_in_at = excluded.signed_in_at`,
		userID, formatTime(a.db.now()))
	if err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var fullName sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &fullName); err != nil {
		return core.User{}, err
	}
	u.DisplayName = core.DisplayNameFor(u.Email, map[string]string{"full_name": fullName.String})
	return u, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email address %q", email)
	}
	return email, nil
}

var _ core.AuthProvider = (*Auth)(nil)
