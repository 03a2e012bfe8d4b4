package engine

import (
	"github.com/aretw0/introspection"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Owner        string            `json:"owner"`
	Notes        int               `json:"notes"`
	Loaded       bool              `json:"loaded"`
	Editing      string            `json:"editing,omitempty"`
	PendingSaves int               `json:"pending_saves"`
	InFlight     []string          `json:"in_flight,omitempty"`
	Status       map[string]string `json:"status,omitempty"`
	FlushOnClose bool              `json:"flush_on_close"`
	Debounce     string            `json:"debounce"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	pending := e.sched.Len()

	e.mu.Lock()
	defer e.mu.Unlock()

	st := EngineState{
		Owner:        e.owner,
		Notes:        len(e.notes),
		Loaded:       e.loaded,
		PendingSaves: pending,
		Status:       make(map[string]string, len(e.status)),
		FlushOnClose: e.opts.flushOnClose,
		Debounce:     e.opts.debounce.String(),
	}
	if e.edit != nil {
		st.Editing = e.edit.id
	}
	for id, w := range e.writers {
		if w.inFlight {
			st.InFlight = append(st.InFlight, id)
		}
	}
	for id, s := range e.status {
		st.Status[id] = s.String()
	}
	return st
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "engine"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
