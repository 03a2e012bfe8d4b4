package engine

import (
	"sort"

	"github.com/aretw0/glossa/pkg/core"
)

type changeKind int

const (
	changeCreated changeKind = iota
	changeDeleted
	changeFavorite
	changeDraft
)

// change holds the seq of the latest local change of each kind to a note.
type change struct {
	created, deleted, favorite, draft uint64
}

// touchLocked records a local change. Only changes made while a List is in
// flight matter, so nothing is recorded otherwise.
func (e *Engine) touchLocked(id string, k changeKind) {
	if e.fetching == 0 {
		return
	}
	e.seq++
	c, ok := e.changes[id]
	if !ok {
		c = &change{}
		e.changes[id] = c
	}
	switch k {
	case changeCreated:
		c.created = e.seq
	case changeDeleted:
		c.deleted = e.seq
	case changeFavorite:
		c.favorite = e.seq
	case changeDraft:
		c.draft = e.seq
	}
}

func (e *Engine) endFetchLocked() {
	e.fetching--
	if e.fetching == 0 {
		clear(e.changes)
	}
}

// savingLocked reports whether a save of the note is in flight or queued.
func (e *Engine) savingLocked(id string) bool {
	w, ok := e.writers[id]
	return ok && (w.inFlight || w.queued != nil)
}

// mergeLocked combines fetched rows with the local collection. mark is the
// seq observed when the fetch started; local changes after it win.
func (e *Engine) mergeLocked(fetched []core.Note, mark uint64) []core.Note {
	local := make(map[string]core.Note, len(e.notes))
	for _, n := range e.notes {
		local[n.ID] = n
	}

	seen := make(map[string]bool, len(fetched))
	merged := make([]core.Note, 0, len(fetched)+len(e.notes))
	for _, n := range fetched {
		seen[n.ID] = true
		c := e.changes[n.ID]
		if c != nil && c.deleted > mark {
			continue
		}
		if l, ok := local[n.ID]; ok {
			if (c != nil && c.favorite > mark) || e.favWrites[n.ID] > 0 {
				n.IsFavorite = l.IsFavorite
			}
			if (c != nil && c.draft > mark) || e.savingLocked(n.ID) {
				n.Title, n.Content, n.Tags = l.Title, l.Content, l.Tags.Clone()
				n.LastModified = l.LastModified
			}
		}
		merged = append(merged, n)
	}
	for _, l := range e.notes {
		if seen[l.ID] {
			continue
		}
		if c := e.changes[l.ID]; c != nil && c.created > mark && c.deleted <= mark {
			merged = append(merged, l)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}
