package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/glossa/pkg/core"
)

// List implements core.Store.
func (db *DB) List(ctx context.Context, ownerID string) ([]core.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner_id, title, content, tags, is_favorite, created_at, updated_at
		FROM notes
		WHERE owner_id = ?
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []core.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// Insert implements core.Store.
func (db *DB) Insert(ctx context.Context, ownerID string) (core.Note, error) {
	now := db.now().UTC()
	n := core.Note{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Tags:         core.Tags{},
		CreatedAt:    now,
		LastModified: now,
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, title, content, tags, is_favorite, created_at, updated_at)
		VALUES (?, ?, '', '', '[]', 0, ?, ?)`,
		n.ID, ownerID, formatTime(now), formatTime(now))
	if err != nil {
		return core.Note{}, fmt.Errorf("failed to insert note: %w", err)
	}
	return n, nil
}

// Update implements core.Store.
func (db *DB) Update(ctx context.Context, ownerID, id string, p core.Patch) error {
	var sets []string
	var args []any

	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *p.Content)
	}
	if p.SetTags {
		raw, err := json.Marshal(p.Tags.Clone())
		if err != nil {
			return fmt.Errorf("failed to encode tags: %w", err)
		}
		sets = append(sets, "tags = ?")
		args = append(args, string(raw))
	}
	if p.IsFavorite != nil {
		sets = append(sets, "is_favorite = ?")
		args = append(args, *p.IsFavorite)
	}

	edited := p.Title != nil || p.Content != nil || p.SetTags
	if p.UpdatedAt != nil || edited {
		at := db.now()
		if p.UpdatedAt != nil {
			at = *p.UpdatedAt
		}
		ts := formatTime(at)
		sets = append(sets, "updated_at = CASE WHEN ? > updated_at THEN ? ELSE updated_at END")
		args = append(args, ts, ts)
	}

	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE notes SET " + strings.Join(sets, ", ") + " WHERE id = ? AND owner_id = ?"
	args = append(args, id, ownerID)

	res, err := db.conn.ExecContext(ctx, query, args...)
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
func (db *DB) Delete(ctx context.Context, ownerID, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND owner_id = ?`, id, ownerID)
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

func scanNote(rows *sql.Rows) (core.Note, error) {
	var (
		n                  core.Note
		title, content     sql.NullString
		tags               sql.NullString
		fav                sql.NullBool
		createdAt, updated sql.NullString
	)
	if err := rows.Scan(&n.ID, &n.OwnerID, &title, &content, &tags, &fav, &createdAt, &updated); err != nil {
		return core.Note{}, fmt.Errorf("failed to scan note: %w", err)
	}

	n.Title = title.String
	n.Content = content.String
	n.IsFavorite = fav.Valid && fav.Bool
	n.CreatedAt = parseTime(createdAt)
	n.LastModified = parseTime(updated)
	n.Tags = core.Tags{}
	if tags.Valid && tags.String != "" {
		var values []string
		if err := json.Unmarshal([]byte(tags.String), &values); err != nil {
			return core.Note{}, fmt.Errorf("failed to decode tags of note %s: %w", n.ID, err)
		}
		n.Tags = core.NewTags(values...)
	}
	return n, nil
}

var _ core.Store = (*DB)(nil)
var _ core.Initializer = (*DB)(nil)
