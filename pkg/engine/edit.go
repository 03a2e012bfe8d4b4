package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/glossa/pkg/core"
)

// Field names an editable part of the draft.
type Field int

const (
	FieldTitle Field = iota
	FieldContent
	FieldAddTag
	FieldRemoveTag
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldContent:
		return "content"
	case FieldAddTag:
		return "add-tag"
	case FieldRemoveTag:
		return "remove-tag"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

type editSession struct {
	id    string
	draft core.Draft
}

// writer serializes the saves of one note: at most one write is in flight,
// and the latest snapshot produced meanwhile waits in queued.
type writer struct {
	inFlight   bool
	queued     *snapshot
	nextGen    uint64
	appliedGen uint64
}

type snapshot struct {
	draft core.Draft
	at    time.Time
	gen   uint64
}

// OpenForEdit copies the note into the edit buffer. Opening a different
// note closes the current session first (see WithFlushOnClose).
// Re-opening the note already being edited keeps its buffer.
func (e *Engine) OpenForEdit(id string) error {
	if e.isClosed() {
		return ErrClosed
	}

	e.mu.Lock()
	idx := e.indexLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return core.ErrNotFound
	}
	if e.edit != nil && e.edit.id == id {
		e.mu.Unlock()
		return nil
	}
	prev := e.edit
	e.edit = &editSession{id: id, draft: e.notes[idx].Draft()}
	e.mu.Unlock()

	if prev != nil {
		e.settle(prev.id)
	}
	return nil
}

// CloseEdit ends the edit session. A pending debounced save is flushed or
// defused according to WithFlushOnClose; saves already in flight complete
// on their own and reconcile by ID.
func (e *Engine) CloseEdit() {
	e.mu.Lock()
	prev := e.edit
	e.edit = nil
	e.mu.Unlock()

	if prev != nil {
		e.settle(prev.id)
	}
}

// Current returns the ID and a copy of the draft being edited.
func (e *Engine) Current() (string, core.Draft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.edit == nil {
		return "", core.Draft{}, false
	}
	return e.edit.id, e.edit.draft.Clone(), true
}

// Edit mutates the edit buffer and restarts the debounce timer of the note.
// No network call happens synchronously.
func (e *Engine) Edit(field Field, value string) error {
	if e.isClosed() {
		return ErrClosed
	}

	e.mu.Lock()
	if e.edit == nil {
		e.mu.Unlock()
		return core.ErrNoEditSession
	}
	d := &e.edit.draft
	switch field {
	case FieldTitle:
		d.Title = value
	case FieldContent:
		d.Content = value
	case FieldAddTag:
		d.Tags = d.Tags.Add(value)
	case FieldRemoveTag:
		d.Tags = d.Tags.Remove(value)
	default:
		e.mu.Unlock()
		return fmt.Errorf("unknown field %v", field)
	}
	id := e.edit.id
	draft := d.Clone()
	if e.status[id] != StatusSaving {
		e.status[id] = StatusPending
	}
	e.mu.Unlock()

	e.sched.Schedule(id, e.opts.debounce, func() { e.persist(id, draft) })
	return nil
}

// SetTitle replaces the draft title.
func (e *Engine) SetTitle(v string) error { return e.Edit(FieldTitle, v) }

// SetContent replaces the draft content.
func (e *Engine) SetContent(v string) error { return e.Edit(FieldContent, v) }

// AddTag appends a tag to the draft unless already present.
func (e *Engine) AddTag(tag string) error { return e.Edit(FieldAddTag, tag) }

// RemoveTag removes a tag from the draft. Missing tags are ignored.
func (e *Engine) RemoveTag(tag string) error { return e.Edit(FieldRemoveTag, tag) }

// settle handles the pending save of a note whose edit session just closed.
func (e *Engine) settle(id string) {
	if e.opts.flushOnClose {
		e.sched.Flush(id)
		return
	}
	if e.sched.Cancel(id) {
		e.logger.Warn("edit session closed, unsaved edits discarded", "id", id)
		e.mu.Lock()
		if e.status[id] == StatusPending {
			e.status[id] = StatusIdle
		}
		e.mu.Unlock()
	}
}

// persist is the debounced task: it stamps the draft and hands it to the
// note's writer.
func (e *Engine) persist(id string, draft core.Draft) {
	e.mu.Lock()
	idx := e.indexLocked(id)
	if idx < 0 {
		if e.edit != nil && e.edit.id == id {
			// The note vanished under an open session, e.g. deleted elsewhere.
			e.status[id] = StatusFailed
			e.emitLocked(core.EventSaveFailed, id, &core.WriteError{Op: core.OpUpdate, ID: id, Err: core.ErrNotFound})
			e.mu.Unlock()
			e.logger.Error("save skipped, edited note no longer present", "id", id)
			return
		}
		delete(e.status, id)
		e.mu.Unlock()
		e.logger.Debug("save skipped, note no longer present", "id", id)
		return
	}
	at := e.opts.now()
	if last := e.notes[idx].LastModified; at.Before(last) {
		at = last
	}

	w, ok := e.writers[id]
	if !ok {
		w = &writer{}
		e.writers[id] = w
	}
	w.nextGen++
	snap := snapshot{draft: draft, at: at, gen: w.nextGen}
	e.status[id] = StatusSaving
	if w.inFlight {
		w.queued = &snap
		e.mu.Unlock()
		return
	}
	w.inFlight = true
	e.inflight.Add(1)
	e.emitLocked(core.EventSaving, id, nil)
	e.mu.Unlock()

	e.startWrite(id, snap)
}

func (e *Engine) startWrite(id string, snap snapshot) {
	lifecycle.Go(e.ctx, func(ctx context.Context) error {
		e.write(id, snap)
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		e.logger.Error("save panicked", "id", id, "error", err)
	}))
}

func (e *Engine) write(id string, snap snapshot) {
	// In-flight writes are never cancelled; only the timeout bounds them.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(e.ctx), e.opts.writeTimeout)
	defer cancel()

	started := time.Now()
	err := e.store.Update(ctx, e.owner, id, core.DraftPatch(snap.draft, snap.at))
	e.opts.recorder.ObserveSave(time.Since(started), err)
	e.complete(id, snap, err)
}

// complete reconciles a finished write into the collection by ID and starts
// the queued snapshot, if any.
func (e *Engine) complete(id string, snap snapshot, err error) {
	e.mu.Lock()
	defer e.inflight.Done()

	w := e.writers[id]
	idx := e.indexLocked(id)

	switch {
	case idx < 0:
		e.logger.Debug("save completed for absent note, ignored", "id", id, "error", err)
	case err != nil:
		e.logger.Error("autosave failed", "id", id, "error", err)
		e.status[id] = StatusFailed
		e.emitLocked(core.EventSaveFailed, id, &core.WriteError{Op: core.OpUpdate, ID: id, Err: err})
	case w != nil && snap.gen <= w.appliedGen:
		e.logger.Debug("stale save completion discarded", "id", id, "gen", snap.gen, "applied", w.appliedGen)
	default:
		e.notes[idx] = core.DraftPatch(snap.draft, snap.at).Apply(e.notes[idx])
		if w != nil {
			w.appliedGen = snap.gen
		}
		e.touchLocked(id, changeDraft)
		e.status[id] = StatusSaved
		if e.sched.Pending(id) {
			e.status[id] = StatusPending
		}
		e.emitLocked(core.EventSaved, id, nil)
	}

	if w == nil {
		e.mu.Unlock()
		return
	}
	if w.queued == nil || idx < 0 {
		w.inFlight = false
		w.queued = nil
		if idx < 0 {
			delete(e.writers, id)
		}
		e.mu.Unlock()
		return
	}

	next := *w.queued
	w.queued = nil
	e.status[id] = StatusSaving
	e.inflight.Add(1)
	e.emitLocked(core.EventSaving, id, nil)
	e.mu.Unlock()

	e.startWrite(id, next)
}
