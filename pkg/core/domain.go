// Package core holds the domain types of Glossa and the ports its adapters implement.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Note is the only entity with a persistence lifecycle.
// ID, OwnerID and CreatedAt are assigned by the store and never change.
type Note struct {
	ID           string    `json:"id" yaml:"id"`
	OwnerID      string    `json:"owner_id" yaml:"owner_id"`
	Title        string    `json:"title" yaml:"title"`
	Content      string    `json:"content" yaml:"content"`
	Tags         Tags      `json:"tags" yaml:"tags"`
	IsFavorite   bool      `json:"is_favorite" yaml:"is_favorite"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	LastModified time.Time `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a copy that shares no memory with n.
func (n Note) Clone() Note {
	n.Tags = n.Tags.Clone()
	return n
}

// Draft returns the editable part of the note.
func (n Note) Draft() Draft {
	return Draft{Title: n.Title, Content: n.Content, Tags: n.Tags.Clone()}
}

// Draft is the transient edit buffer of a note.
type Draft struct {
	Title   string
	Content string
	Tags    Tags
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	d.Tags = d.Tags.Clone()
	return d
}

// Tags is an ordered set of short strings. Insertion order is kept for display
// and comparison is case-sensitive.
type Tags []string

// NewTags builds a tag set from values, dropping duplicates and blanks.
func NewTags(values ...string) Tags {
	var t Tags
	for _, v := range values {
		t = t.Add(v)
	}
	return t
}

// Add returns the set with tag appended. Existing or blank values are ignored.
func (t Tags) Add(tag string) Tags {
	tag = strings.TrimSpace(tag)
	if tag == "" || t.Has(tag) {
		return t
	}
	return append(t, tag)
}

// Remove returns the set without tag. Removing a missing tag is a no-op.
func (t Tags) Remove(tag string) Tags {
	tag = strings.TrimSpace(tag)
	for i, v := range t {
		if v == tag {
			out := make(Tags, 0, len(t)-1)
			out = append(out, t[:i]...)
			return append(out, t[i+1:]...)
		}
	}
	return t
}

// Has reports whether tag is in the set.
func (t Tags) Has(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// Clone returns a copy of the set. A nil set clones to an empty one.
func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	copy(out, t)
	return out
}

// Match reports whether any tag matches the doublestar pattern.
// An empty pattern matches everything.
func (t Tags) Match(pattern string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return false, fmt.Errorf("invalid tag pattern %q", pattern)
	}
	for _, v := range t {
		if ok, _ := doublestar.Match(pattern, v); ok {
			return true, nil
		}
	}
	return false, nil
}

// Patch is a partial update of a stored note. Nil fields are left untouched.
type Patch struct {
	Title      *string
	Content    *string
	Tags       Tags
	SetTags    bool
	IsFavorite *bool
	UpdatedAt  *time.Time
}

// DraftPatch builds the patch that persists a draft at the given time.
func DraftPatch(d Draft, at time.Time) Patch {
	title, content := d.Title, d.Content
	return Patch{
		Title:     &title,
		Content:   &content,
		Tags:      d.Tags.Clone(),
		SetTags:   true,
		UpdatedAt: &at,
	}
}

// FavoritePatch builds the patch that persists only the favorite flag.
func FavoritePatch(fav bool) Patch {
	return Patch{IsFavorite: &fav}
}

// Apply returns n with the patch fields applied.
func (p Patch) Apply(n Note) Note {
	n = n.Clone()
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.SetTags {
		n.Tags = p.Tags.Clone()
	}
	if p.IsFavorite != nil {
		n.IsFavorite = *p.IsFavorite
	}
	if p.UpdatedAt != nil && p.UpdatedAt.After(n.LastModified) {
		n.LastModified = *p.UpdatedAt
	}
	return n
}

// User is the authenticated owner of notes.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// DisplayNameFor derives a display name from profile metadata or, failing
// that, from the local part of the email.
func DisplayNameFor(email string, profile map[string]string) string {
	for _, key := range []string{"full_name", "display_name", "name"} {
		if v := strings.TrimSpace(profile[key]); v != "" {
			return v
		}
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

// EventType represents the kind of change observed in the note collection.
type EventType string

const (
	EventLoaded     EventType = "LOADED"
	EventCreate     EventType = "CREATE"
	EventSaving     EventType = "SAVING"
	EventSaved      EventType = "SAVED"
	EventSaveFailed EventType = "SAVE_FAILED"
	EventFavorite   EventType = "FAVORITE"
	EventReverted   EventType = "REVERTED"
	EventDelete     EventType = "DELETE"
)

// Event represents a change in the note collection.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
	Err       error
}

func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Type, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}
