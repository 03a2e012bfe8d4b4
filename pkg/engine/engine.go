// Package engine keeps an in-memory collection of notes consistent with a
// remote core.Store while the user edits them.
//
// Field edits go to a transient draft and are persisted by a debounced save;
// the favorite flag is toggled optimistically and rolled back on failure;
// create and delete wait for the store before touching local state.
// Every asynchronous completion is reconciled by note ID and is a no-op when
// the note is gone.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/glossa/pkg/core"
	"github.com/aretw0/glossa/pkg/debounce"
)

// ErrClosed is returned by operations on a closed Engine.
var ErrClosed = errors.New("engine is closed")

// SaveStatus is the persistence state of a note, suitable for a
// saving/saved/error indicator.
type SaveStatus int

const (
	StatusIdle SaveStatus = iota
	StatusPending
	StatusSaving
	StatusSaved
	StatusFailed
)

func (s SaveStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Engine is the entity sync engine for the notes of one owner.
type Engine struct {
	store  core.Store
	owner  string
	opts   *options
	logger *slog.Logger
	sched  *debounce.Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	notes   []core.Note
	loaded  bool
	edit    *editSession
	writers map[string]*writer
	toggles map[string]uint64
	status  map[string]SaveStatus
	events  chan core.Event
	closed  bool

	// Local changes made while a List is in flight, ordered by seq, so the
	// fetched rows can be merged instead of overwriting them.
	seq       uint64
	fetching  int
	changes   map[string]*change
	favWrites map[string]int

	inflight sync.WaitGroup
}

// New creates an Engine bound to ownerID. The collection starts empty and
// not loaded; call List to fetch it.
func New(store core.Store, ownerID string, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:   store,
		owner:   ownerID,
		opts:    o,
		logger:  logger.With("component", "engine", "owner", ownerID),
		sched:   debounce.New(),
		ctx:     ctx,
		cancel:  cancel,
		writers: make(map[string]*writer),
		toggles:   make(map[string]uint64),
		status:    make(map[string]SaveStatus),
		events:    make(chan core.Event, o.eventBuffer),
		changes:   make(map[string]*change),
		favWrites: make(map[string]int),
	}
}

// Owner returns the owner id the engine is scoped to.
func (e *Engine) Owner() string { return e.owner }

// Events returns the stream of collection changes. Events are dropped when
// the buffer is full. The channel is closed by Close.
func (e *Engine) Events() <-chan core.Event { return e.events }

// List fetches all notes of the owner, newest creation first, and merges
// them into the local collection. Local changes made while the fetch was in
// flight win over the fetched rows: notes created meanwhile are kept, notes
// deleted meanwhile stay gone, and favorite flips or saves completed
// meanwhile are not overwritten. On failure it returns a *core.FetchError
// and leaves the local collection untouched.
func (e *Engine) List(ctx context.Context) ([]core.Note, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	mark := e.seq
	e.fetching++
	e.mu.Unlock()

	fetched, err := e.store.List(ctx, e.owner)
	e.opts.recorder.ObserveFetch(err)
	if err != nil {
		e.mu.Lock()
		e.endFetchLocked()
		e.mu.Unlock()
		e.logger.Error("list notes failed", "error", err)
		return nil, &core.FetchError{Err: err}
	}

	now := e.opts.now()
	notes := make([]core.Note, 0, len(fetched))
	for _, n := range fetched {
		notes = append(notes, normalize(n, now))
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	e.notes = e.mergeLocked(notes, mark)
	e.endFetchLocked()
	e.loaded = true
	e.emitLocked(core.EventLoaded, "", nil)
	return cloneAll(e.notes), nil
}

// Create inserts an empty note, prepends it to the local collection and
// opens it for editing. On failure it returns a *core.WriteError and local
// state is unchanged.
func (e *Engine) Create(ctx context.Context) (core.Note, error) {
	if e.isClosed() {
		return core.Note{}, ErrClosed
	}

	n, err := e.store.Insert(ctx, e.owner)
	if err != nil {
		e.logger.Error("create note failed", "error", err)
		return core.Note{}, &core.WriteError{Op: core.OpCreate, Err: err}
	}
	n = normalize(n, e.opts.now())

	e.mu.Lock()
	e.notes = append([]core.Note{n}, e.notes...)
	e.touchLocked(n.ID, changeCreated)
	e.emitLocked(core.EventCreate, n.ID, nil)
	e.mu.Unlock()

	e.logger.Debug("note created", "id", n.ID)
	if err := e.OpenForEdit(n.ID); err != nil {
		return n.Clone(), err
	}
	return n.Clone(), nil
}

// ToggleFavorite flips the favorite flag locally at once and then persists
// it. If the write fails the flip is rolled back and logged; the failure is
// reported through Events, not the returned error. It returns the value
// displayed once the write has settled.
func (e *Engine) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	if e.isClosed() {
		return false, ErrClosed
	}

	e.mu.Lock()
	idx := e.indexLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return false, core.ErrNotFound
	}
	to := !e.notes[idx].IsFavorite
	in := favoriteIntent(to)
	e.notes[idx] = in.apply(e.notes[idx])
	e.toggles[id]++
	gen := e.toggles[id]
	e.favWrites[id]++
	e.touchLocked(id, changeFavorite)
	e.emitLocked(core.EventFavorite, id, nil)
	e.mu.Unlock()

	err := e.store.Update(ctx, e.owner, id, core.FavoritePatch(to))

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.favWrites[id]--; e.favWrites[id] <= 0 {
		delete(e.favWrites, id)
	}
	e.touchLocked(id, changeFavorite)
	idx = e.indexLocked(id)
	if err == nil {
		if idx < 0 {
			return to, nil
		}
		return e.notes[idx].IsFavorite, nil
	}

	werr := &core.WriteError{Op: core.OpFavorite, ID: id, Err: err}
	if idx < 0 || e.toggles[id] != gen {
		// Deleted meanwhile, or a newer toggle owns the flag now.
		e.logger.Warn("favorite write failed, rollback skipped", "id", id, "error", err)
		if idx < 0 {
			return !to, nil
		}
		return e.notes[idx].IsFavorite, nil
	}
	e.notes[idx] = in.invert(e.notes[idx])
	e.opts.recorder.ObserveRollback()
	e.logger.Error("favorite write failed, rolled back", "id", id, "error", err)
	e.emitLocked(core.EventReverted, id, werr)
	return e.notes[idx].IsFavorite, nil
}

// Delete removes the note from the store and, only once the store has
// confirmed, from the local collection. An open edit session for the note
// is closed and its pending save defused. On failure it returns a
// *core.WriteError and the collection is unchanged.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if e.isClosed() {
		return ErrClosed
	}

	e.mu.Lock()
	if e.indexLocked(id) < 0 {
		e.mu.Unlock()
		return core.ErrNotFound
	}
	e.mu.Unlock()

	if err := e.store.Delete(ctx, e.owner, id); err != nil {
		e.logger.Error("delete note failed", "id", id, "error", err)
		return &core.WriteError{Op: core.OpDelete, ID: id, Err: err}
	}

	e.sched.Cancel(id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if idx := e.indexLocked(id); idx >= 0 {
		e.notes = append(e.notes[:idx], e.notes[idx+1:]...)
	}
	if e.edit != nil && e.edit.id == id {
		e.edit = nil
	}
	if w, ok := e.writers[id]; ok {
		w.queued = nil
		if !w.inFlight {
			delete(e.writers, id)
		}
	}
	delete(e.status, id)
	delete(e.toggles, id)
	e.touchLocked(id, changeDeleted)
	e.emitLocked(core.EventDelete, id, nil)
	e.logger.Debug("note deleted", "id", id)
	return nil
}

// Notes returns a copy of the local collection.
func (e *Engine) Notes() []core.Note {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneAll(e.notes)
}

// Note returns a copy of the local note with the given ID.
func (e *Engine) Note(id string) (core.Note, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx := e.indexLocked(id); idx >= 0 {
		return e.notes[idx].Clone(), true
	}
	return core.Note{}, false
}

// Filter returns the local notes having a tag that matches the glob pattern.
func (e *Engine) Filter(pattern string) ([]core.Note, error) {
	var out []core.Note
	for _, n := range e.Notes() {
		ok, err := n.Tags.Match(pattern)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Loaded reports whether the local collection reflects a successful List.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Status returns the persistence status of the note.
func (e *Engine) Status(id string) SaveStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status[id]
}

// Close flushes pending saves (discards them with WithFlushOnClose(false)),
// waits for in-flight writes until ctx is done and closes the event stream.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.edit = nil
	e.mu.Unlock()

	if e.opts.flushOnClose {
		e.sched.FlushAll()
	} else if n := e.sched.Len(); n > 0 {
		e.logger.Warn("closing with unsaved edits, discarded", "notes", n)
		e.mu.Lock()
		for id, st := range e.status {
			if st == StatusPending {
				e.status[id] = StatusIdle
			}
		}
		e.mu.Unlock()
	}

	wait := time.Until(deadline(ctx, e.opts.writeTimeout))
	e.sched.StopAndWait(wait)

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		e.logger.Warn("closing with writes still in flight", "error", err)
	}

	e.mu.Lock()
	e.closed = true
	close(e.events)
	e.mu.Unlock()
	e.cancel()
	return err
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) indexLocked(id string) int {
	for i := range e.notes {
		if e.notes[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) emitLocked(t core.EventType, id string, err error) {
	if e.closed {
		return
	}
	select {
	case e.events <- core.Event{Type: t, ID: id, Timestamp: e.opts.now().Unix(), Err: err}:
	default:
		e.logger.Debug("event dropped, buffer full", "type", t, "id", id)
	}
}

// normalize maps missing fields to their defaults.
func normalize(n core.Note, now time.Time) core.Note {
	if n.Tags == nil {
		n.Tags = core.Tags{}
	} else {
		n.Tags = core.NewTags(n.Tags...)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.LastModified.IsZero() || n.LastModified.Before(n.CreatedAt) {
		n.LastModified = n.CreatedAt
	}
	return n
}

func cloneAll(notes []core.Note) []core.Note {
	out := make([]core.Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}

func deadline(ctx context.Context, fallback time.Duration) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(fallback)
}
