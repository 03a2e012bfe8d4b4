// Package memory implements core.Store in memory.
//
// It backs tests and offline demos, and can inject failures or block calls
// to exercise the engine's optimistic and debounced paths.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/glossa/pkg/core"
)

// Op names a store call.
type Op string

const (
	OpList   Op = "list"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Hook runs before a call is applied. Returning an error fails the call.
type Hook func(ctx context.Context, op Op, id string) error

// Call records a store call that reached the store.
type Call struct {
	Op    Op
	Owner string
	ID    string
	Patch core.Patch
	Err   error
}

// Store is an in-memory core.Store.
type Store struct {
	mu    sync.Mutex
	notes map[string]core.Note
	fail  map[Op][]error
	calls []Call
	hook  Hook
	now   func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		notes: make(map[string]core.Note),
		fail:  make(map[Op][]error),
		now:   time.Now,
	}
}

// SetClock replaces the clock used for store-assigned timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNext makes the next call of op fail with err. Calls queue up.
func (s *Store) FailNext(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = append(s.fail[op], err)
}

// SetHook installs a hook run before every call, outside the store lock.
func (s *Store) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// Calls returns the recorded calls of the given op, or all calls if op is empty.
func (s *Store) Calls(op Op) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Put stores a note as-is, bypassing the hook and failure queue.
func (s *Store) Put(n core.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.ID] = n.Clone()
}

// Get returns the stored note regardless of owner.
func (s *Store) Get(id string) (core.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	return n.Clone(), ok
}

func (s *Store) before(ctx context.Context, op Op, id string) error {
	s.mu.Lock()
	h := s.hook
	s.mu.Unlock()

	if h != nil {
		if err := h(ctx, op, id); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if q := s.fail[op]; len(q) > 0 {
		s.fail[op] = q[1:]
		return q[0]
	}
	return nil
}

func (s *Store) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

// List implements core.Store.
func (s *Store) List(ctx context.Context, ownerID string) ([]core.Note, error) {
	if err := s.before(ctx, OpList, ""); err != nil {
		s.record(Call{Op: OpList, Owner: ownerID, Err: err})
		return nil, err
	}
	s.record(Call{Op: OpList, Owner: ownerID})

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Note
	for _, n := range s.notes {
		if n.OwnerID == ownerID {
			out = append(out, n.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Insert implements core.Store.
func (s *Store) Insert(ctx context.Context, ownerID string) (core.Note, error) {
	if err := s.before(ctx, OpInsert, ""); err != nil {
		s.record(Call{Op: OpInsert, Owner: ownerID, Err: err})
		return core.Note{}, err
	}

	s.mu.Lock()
	now := s.now()
	n := core.Note{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Tags:         core.Tags{},
		CreatedAt:    now,
		LastModified: now,
	}
	s.notes[n.ID] = n
	s.mu.Unlock()

	s.record(Call{Op: OpInsert, Owner: ownerID, ID: n.ID})
	return n.Clone(), nil
}

// Update implements core.Store.
func (s *Store) Update(ctx context.Context, ownerID, id string, p core.Patch) error {
	if err := s.before(ctx, OpUpdate, id); err != nil {
		s.record(Call{Op: OpUpdate, Owner: ownerID, ID: id, Patch: p, Err: err})
		return err
	}

	s.mu.Lock()
	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		s.mu.Unlock()
		s.record(Call{Op: OpUpdate, Owner: ownerID, ID: id, Patch: p, Err: core.ErrNotFound})
		return core.ErrNotFound
	}
	if p.UpdatedAt == nil && (p.Title != nil || p.Content != nil || p.SetTags) {
		now := s.now()
		p.UpdatedAt = &now
	}
	s.notes[id] = p.Apply(n)
	s.mu.Unlock()

	s.record(Call{Op: OpUpdate, Owner: ownerID, ID: id, Patch: p})
	return nil
}

// Delete implements core.Store.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.before(ctx, OpDelete, id); err != nil {
		s.record(Call{Op: OpDelete, Owner: ownerID, ID: id, Err: err})
		return err
	}

	s.mu.Lock()
	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		s.mu.Unlock()
		s.record(Call{Op: OpDelete, Owner: ownerID, ID: id, Err: core.ErrNotFound})
		return core.ErrNotFound
	}
	delete(s.notes, id)
	s.mu.Unlock()

	s.record(Call{Op: OpDelete, Owner: ownerID, ID: id})
	return nil
}

var _ core.Store = (*Store)(nil)
