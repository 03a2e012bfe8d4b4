// Package postgres implements core.Store on a shared PostgreSQL database,
// for deployments where several devices edit the same notes.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/aretw0/glossa/pkg/core"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;
CREATE TABLE IF NOT EXISTS notes (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	owner_id    TEXT NOT NULL,
	title       TEXT,
	content     TEXT,
	tags        TEXT[] NOT NULL DEFAULT '{}',
	is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_notes_owner_created ON notes(owner_id, created_at DESC);
`

// Config holds the connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the config as a libpq keyword/value connection string.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.DBName, sslMode)
}

// Store is a PostgreSQL note store.
type Store struct {
	db *sql.DB
}

// Open connects using a libpq DSN or a postgres:// URL.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// Initialize creates the notes table if it does not exist.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// List implements core.Store.
func (s *Store) List(ctx context.Context, ownerID string) ([]core.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, content, tags, is_favorite, created_at, updated_at
		FROM notes
		WHERE owner_id = $1
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []core.Note
	for rows.Next() {
		var (
			n              core.Note
			title, content sql.NullString
			tags           pq.StringArray
		)
		if err := rows.Scan(&n.ID, &n.OwnerID, &title, &content, &tags, &n.IsFavorite, &n.CreatedAt, &n.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		n.Title = title.String
		n.Content = content.String
		n.Tags = core.NewTags(tags...)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// Insert implements core.Store.
func (s *Store) Insert(ctx context.Context, ownerID string) (core.Note, error) {
	n := core.Note{OwnerID: ownerID, Tags: core.Tags{}}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO notes (owner_id, title, content) VALUES ($1, '', '') RETURNING id, created_at, updated_at`,
		ownerID).Scan(&n.ID, &n.CreatedAt, &n.LastModified)
	if err != nil {
		return core.Note{}, fmt.Errorf("failed to insert note: %w", err)
	}
	return n, nil
}

// Update implements core.Store.
func (s *Store) Update(ctx context.Context, ownerID, id string, p core.Patch) error {
	query, args := buildUpdate(ownerID, id, p)
	if query == "" {
		return nil
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if isInvalidID(err) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Delete implements core.Store.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if isInvalidID(err) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// isInvalidID reports a malformed UUID, which cannot name an existing note.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}

// buildUpdate renders the patch as a parameterized UPDATE. It returns an
// empty query for a patch with no fields.
func buildUpdate(ownerID, id string, p core.Patch) (string, []any) {
	var sets []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Title != nil {
		sets = append(sets, "title = "+arg(*p.Title))
	}
	if p.Content != nil {
		sets = append(sets, "content = "+arg(*p.Content))
	}
	if p.SetTags {
		tags := []string(p.Tags.Clone())
		if tags == nil {
			tags = []string{}
		}
		sets = append(sets, "tags = "+arg(pq.Array(tags)))
	}
	if p.IsFavorite != nil {
		sets = append(sets, "is_favorite = "+arg(*p.IsFavorite))
	}
	switch {
	case p.UpdatedAt != nil:
		sets = append(sets, "updated_at = GREATEST(updated_at, "+arg(p.UpdatedAt.UTC())+"::timestamptz)")
	case p.Title != nil || p.Content != nil || p.SetTags:
		sets = append(sets, "updated_at = GREATEST(updated_at, now())")
	}

	if len(sets) == 0 {
		return "", nil
	}
	query := "UPDATE notes SET " + strings.Join(sets, ", ") +
		" WHERE id = " + arg(id) + " AND owner_id = " + arg(ownerID)
	return query, args
}

var _ core.Store = (*Store)(nil)
var _ core.Initializer = (*Store)(nil)
