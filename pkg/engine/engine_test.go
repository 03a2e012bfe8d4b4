package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/glossa/pkg/adapters/memory"
	"github.com/aretw0/glossa/pkg/core"
	"github.com/aretw0/glossa/pkg/engine"
)

const (
	owner    = "user-1"
	interval = 30 * time.Millisecond
)

var errOffline = errors.New("store unreachable")

func newEngine(t *testing.T, store core.Store, opts ...engine.Option) *engine.Engine {
	t.Helper()
	opts = append([]engine.Option{engine.WithDebounce(interval)}, opts...)
	e := engine.New(store, owner, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.Close(ctx)
	})
	return e
}

func seed(store *memory.Store, id, title string, created time.Time) core.Note {
	n := core.Note{ID: id, OwnerID: owner, Title: title, Tags: core.Tags{}, CreatedAt: created, LastModified: created}
	store.Put(n)
	return n
}

func updates(store *memory.Store) []memory.Call {
	var ok []memory.Call
	for _, c := range store.Calls(memory.OpUpdate) {
		if c.Err == nil {
			ok = append(ok, c)
		}
	}
	return ok
}

func TestList(t *testing.T) {
	t.Run("Orders by Creation Descending and Fills Defaults", func(t *testing.T) {
		store := memory.New()
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		seed(store, "old", "Old", base)
		seed(store, "new", "New", base.Add(time.Hour))
		store.Put(core.Note{ID: "bare", OwnerID: owner, CreatedAt: base.Add(30 * time.Minute)})
		store.Put(core.Note{ID: "other", OwnerID: "someone-else", CreatedAt: base})

		e := newEngine(t, store)
		notes, err := e.List(context.Background())
		require.NoError(t, err)
		require.Len(t, notes, 3)

		assert.Equal(t, []string{"new", "bare", "old"}, []string{notes[0].ID, notes[1].ID, notes[2].ID})
		assert.NotNil(t, notes[1].Tags)
		assert.Empty(t, notes[1].Tags)
		assert.Equal(t, notes[1].CreatedAt, notes[1].LastModified)
		assert.True(t, e.Loaded())
	})

	t.Run("Failure Returns FetchError and Keeps Local State", func(t *testing.T) {
		store := memory.New()
		seed(store, "a", "A", time.Now())
		e := newEngine(t, store)

		store.FailNext(memory.OpList, errOffline)
		_, err := e.List(context.Background())

		var fe *core.FetchError
		require.ErrorAs(t, err, &fe)
		assert.ErrorIs(t, err, errOffline)
		assert.False(t, e.Loaded(), "collection must not look authoritative")
		assert.Empty(t, e.Notes())

		// Retry succeeds
		_, err = e.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, e.Notes(), 1)
	})
}

func TestCreate(t *testing.T) {
	t.Run("Prepends and Opens for Edit", func(t *testing.T) {
		store := memory.New()
		seed(store, "a", "A", time.Now().Add(-time.Hour))
		e := newEngine(t, store)
		_, err := e.List(context.Background())
		require.NoError(t, err)

		n, err := e.Create(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, n.ID)
		assert.Empty(t, n.Title)
		assert.False(t, n.IsFavorite)

		notes := e.Notes()
		require.Len(t, notes, 2)
		assert.Equal(t, n.ID, notes[0].ID)

		id, draft, ok := e.Current()
		require.True(t, ok)
		assert.Equal(t, n.ID, id)
		assert.Empty(t, draft.Title)
	})

	t.Run("Failure Leaves State Unchanged", func(t *testing.T) {
		store := memory.New()
		e := newEngine(t, store)
		store.FailNext(memory.OpInsert, errOffline)

		_, err := e.Create(context.Background())
		var we *core.WriteError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, core.OpCreate, we.Op)
		assert.Empty(t, e.Notes())
		_, _, ok := e.Current()
		assert.False(t, ok)
	})
}

func TestEdit_Debounce(t *testing.T) {
	t.Run("Rapid Edits Produce One Write With the Last State", func(t *testing.T) {
		store := memory.New()
		e := newEngine(t, store)
		n, err := e.Create(context.Background())
		require.NoError(t, err)

		for _, title := range []string{"G", "GD", "GDP", "GDPR"} {
			require.NoError(t, e.SetTitle(title))
			time.Sleep(interval / 6)
		}
		require.NoError(t, e.AddTag("eu"))

		require.Eventually(t, func() bool { return e.Status(n.ID) == engine.StatusSaved }, 2*time.Second, 5*time.Millisecond)
		time.Sleep(3 * interval)

		ups := updates(store)
		require.Len(t, ups, 1)
		assert.Equal(t, "GDPR", *ups[0].Patch.Title)
		assert.Equal(t, core.Tags{"eu"}, ups[0].Patch.Tags)

		local, ok := e.Note(n.ID)
		require.True(t, ok)
		assert.Equal(t, "GDPR", local.Title)
	})

	t.Run("Gap Separated Groups Produce One Write Each", func(t *testing.T) {
		store := memory.New()
		e := newEngine(t, store)
		_, err := e.Create(context.Background())
		require.NoError(t, err)

		require.NoError(t, e.SetContent("first"))
		require.NoError(t, e.SetContent("first draft"))
		require.Eventually(t, func() bool { return len(updates(store)) == 1 }, 2*time.Second, 5*time.Millisecond)

		require.NoError(t, e.SetContent("second"))
		require.NoError(t, e.SetContent("second draft"))
		require.Eventually(t, func() bool { return len(updates(store)) == 2 }, 2*time.Second, 5*time.Millisecond)

		ups := updates(store)
		assert.Equal(t, "first draft", *ups[0].Patch.Content)
		assert.Equal(t, "second draft", *ups[1].Patch.Content)
	})

	t.Run("No Session Returns ErrNoEditSession", func(t *testing.T) {
		e := newEngine(t, memory.New())
		assert.ErrorIs(t, e.SetTitle("x"), core.ErrNoEditSession)
	})
}

func TestEdit_Tags(t *testing.T) {
	store := memory.New()
	e := newEngine(t, store)
	_, err := e.Create(context.Background())
	require.NoError(t, err)

	for _, tag := range []string{"aml", "kyc", "aml", "aml", "kyc"} {
		require.NoError(t, e.AddTag(tag))
	}
	require.NoError(t, e.RemoveTag("sox"))

	_, draft, ok := e.Current()
	require.True(t, ok)
	assert.Equal(t, core.Tags{"aml", "kyc"}, draft.Tags)

	require.NoError(t, e.RemoveTag("aml"))
	_, draft, _ = e.Current()
	assert.Equal(t, core.Tags{"kyc"}, draft.Tags)
}

func TestScenario_CreateEditReload(t *testing.T) {
	store := memory.New()
	e := newEngine(t, store)

	n, err := e.Create(context.Background())
	require.NoError(t, err)
	require.NoError(t, e.SetTitle("GDPR"))
	require.NoError(t, e.SetContent("General Data Protection Regulation"))

	time.Sleep(interval + 20*time.Millisecond)
	require.Eventually(t, func() bool { return e.Status(n.ID) == engine.StatusSaved }, 2*time.Second, 5*time.Millisecond)

	// Reload through a fresh engine so nothing local leaks into the result.
	fresh := newEngine(t, store)
	notes, err := fresh.List(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "GDPR", notes[0].Title)
	assert.Equal(t, "General Data Protection Regulation", notes[0].Content)
	assert.True(t, notes[0].LastModified.After(notes[0].CreatedAt))
}

func TestSwitchingNotes(t *testing.T) {
	setup := func(t *testing.T, opts ...engine.Option) (*memory.Store, *engine.Engine) {
		store := memory.New()
		seed(store, "a", "A", time.Now().Add(-2*time.Hour))
		seed(store, "b", "B", time.Now().Add(-time.Hour))
		e := newEngine(t, store, append([]engine.Option{engine.WithDebounce(time.Hour)}, opts...)...)
		_, err := e.List(context.Background())
		require.NoError(t, err)
		return store, e
	}

	t.Run("Flush on Close Persists the Pending Edit", func(t *testing.T) {
		store, e := setup(t)
		require.NoError(t, e.OpenForEdit("a"))
		require.NoError(t, e.SetTitle("A!"))
		require.NoError(t, e.OpenForEdit("b"))

		require.Eventually(t, func() bool { return len(updates(store)) == 1 }, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, "a", updates(store)[0].ID)
		require.Eventually(t, func() bool {
			n, _ := e.Note("a")
			return n.Title == "A!"
		}, 2*time.Second, 5*time.Millisecond)

		id, _, _ := e.Current()
		assert.Equal(t, "b", id)
	})

	t.Run("Accept Loss Defuses the Timer", func(t *testing.T) {
		store, e := setup(t, engine.WithFlushOnClose(false), engine.WithDebounce(interval))
		require.NoError(t, e.OpenForEdit("a"))
		require.NoError(t, e.SetTitle("A!"))
		require.NoError(t, e.OpenForEdit("b"))

		time.Sleep(4 * interval)
		assert.Empty(t, store.Calls(memory.OpUpdate))
		n, _ := e.Note("a")
		assert.Equal(t, "A", n.Title)
		assert.Equal(t, engine.StatusIdle, e.Status("a"))
	})

	t.Run("CloseEdit Flushes", func(t *testing.T) {
		store, e := setup(t)
		require.NoError(t, e.OpenForEdit("b"))
		require.NoError(t, e.SetContent("body"))
		e.CloseEdit()

		require.Eventually(t, func() bool { return len(updates(store)) == 1 }, 2*time.Second, 5*time.Millisecond)
		_, _, ok := e.Current()
		assert.False(t, ok)
	})

	t.Run("Open Unknown Note", func(t *testing.T) {
		_, e := setup(t)
		assert.ErrorIs(t, e.OpenForEdit("missing"), core.ErrNotFound)
	})
}

func TestAutosave_Failure(t *testing.T) {
	store := memory.New()
	seed(store, "a", "A", time.Now().Add(-time.Hour))
	e := newEngine(t, store)
	_, err := e.List(context.Background())
	require.NoError(t, err)

	store.FailNext(memory.OpUpdate, errOffline)
	require.NoError(t, e.OpenForEdit("a"))
	require.NoError(t, e.SetTitle("changed"))

	require.Eventually(t, func() bool { return e.Status("a") == engine.StatusFailed }, 2*time.Second, 5*time.Millisecond)
	n, _ := e.Note("a")
	assert.Equal(t, "A", n.Title, "local collection is not updated on failure")

	// A later successful save reconciles.
	require.NoError(t, e.SetTitle("changed again"))
	require.Eventually(t, func() bool { return e.Status("a") == engine.StatusSaved }, 2*time.Second, 5*time.Millisecond)
	n, _ = e.Note("a")
	assert.Equal(t, "changed again", n.Title)
}

func TestAutosave_SingleFlight(t *testing.T) {
	store := memory.New()
	seed(store, "a", "A", time.Now().Add(-time.Hour))
	e := newEngine(t, store, engine.WithDebounce(time.Hour))
	_, err := e.List(context.Background())
	require.NoError(t, err)

	started := make(chan struct{}, 4)
	release := make(chan struct{})
	var once sync.Once
	store.SetHook(func(ctx context.Context, op memory.Op, id string) error {
		if op == memory.OpUpdate {
			started <- struct{}{}
			once.Do(func() { <-release })
		}
		return nil
	})

	require.NoError(t, e.OpenForEdit("a"))
	require.NoError(t, e.SetTitle("v1"))
	e.CloseEdit()
	<-started

	// Re-open and edit while v1 is still in flight.
	require.NoError(t, e.OpenForEdit("a"))
	require.NoError(t, e.SetTitle("v2"))
	e.CloseEdit()
	require.NoError(t, e.OpenForEdit("a"))
	require.NoError(t, e.SetTitle("v3"))
	e.CloseEdit()

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, store.Calls(memory.OpUpdate), "second write must wait for the first")
	assert.Equal(t, engine.StatusSaving, e.Status("a"))

	close(release)
	require.Eventually(t, func() bool { return len(updates(store)) == 2 }, 2*time.Second, 5*time.Millisecond)

	ups := updates(store)
	assert.Equal(t, "v1", *ups[0].Patch.Title)
	assert.Equal(t, "v3", *ups[1].Patch.Title, "queued snapshots collapse to the latest")

	require.Eventually(t, func() bool { return e.Status("a") == engine.StatusSaved }, 2*time.Second, 5*time.Millisecond)
	n, _ := e.Note("a")
	assert.Equal(t, "v3", n.Title)
	stored, _ := store.Get("a")
	assert.Equal(t, "v3", stored.Title)
}

func TestToggleFavorite(t *testing.T) {
	t.Run("Optimistic Then Rolled Back on Failure", func(t *testing.T) {
		store := memory.New()
		seed(store, "a", "A", time.Now().Add(-time.Hour))
		seed(store, "b", "B", time.Now())
		e := newEngine(t, store)
		_, err := e.List(context.Background())
		require.NoError(t, err)

		started := make(chan struct{})
		release := make(chan struct{})
		store.SetHook(func(ctx context.Context, op memory.Op, id string) error {
			if op == memory.OpUpdate {
				close(started)
				<-release
			}
			return nil
		})
		store.FailNext(memory.OpUpdate, errOffline)

		result := make(chan bool)
		go func() {
			v, err := e.ToggleFavorite(context.Background(), "a")
			assert.NoError(t, err)
			result <- v
		}()

		<-started
		n, _ := e.Note("a")
		assert.True(t, n.IsFavorite, "flip is visible before the write settles")

		close(release)
		assert.False(t, <-result)

		n, _ = e.Note("a")
		assert.False(t, n.IsFavorite)
		other, _ := e.Note("b")
		assert.False(t, other.IsFavorite, "other notes untouched")

		var reverted bool
		for len(e.Events()) > 0 {
			if ev := <-e.Events(); ev.Type == core.EventReverted && ev.ID == "a" {
				reverted = true
				var we *core.WriteError
				assert.ErrorAs(t, ev.Err, &we)
			}
		}
		assert.True(t, reverted)
	})

	t.Run("Success Persists Only the Flag", func(t *testing.T) {
		store := memory.New()
		seed(store, "a", "A", time.Now())
		e := newEngine(t, store)
		_, err := e.List(context.Background())
		require.NoError(t, err)

		v, err := e.ToggleFavorite(context.Background(), "a")
		require.NoError(t, err)
		assert.True(t, v)

		ups := updates(store)
		require.Len(t, ups, 1)
		assert.Nil(t, ups[0].Patch.Title)
		assert.False(t, ups[0].Patch.SetTags)
		stored, _ := store.Get("a")
		assert.True(t, stored.IsFavorite)
	})

	t.Run("Stale Failure Does Not Revert a Newer Toggle", func(t *testing.T) {
		store := memory.New()
		seed(store, "a", "A", time.Now())
		e := newEngine(t, store)
		_, err := e.List(context.Background())
		require.NoError(t, err)

		firstStarted := make(chan struct{})
		releaseFirst := make(chan struct{})
		var calls int
		var mu sync.Mutex
		store.SetHook(func(ctx context.Context, op memory.Op, id string) error {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				close(firstStarted)
				<-releaseFirst
				return errOffline
			}
			return nil
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = e.ToggleFavorite(context.Background(), "a") // false -> true, fails late
		}()
		<-firstStarted

		v, err := e.ToggleFavorite(context.Background(), "a") // true -> false, succeeds
		require.NoError(t, err)
		assert.False(t, v)

		close(releaseFirst)
		<-done

		n, _ := e.Note("a")
		assert.False(t, n.IsFavorite, "matches the last successful write")
		stored, _ := store.Get("a")
		assert.Equal(t, stored.IsFavorite, n.IsFavorite)
	})

	t.Run("Unknown Note", func(t *testing.T) {
		e := newEngine(t, memory.New())
		_, err := e.ToggleFavorite(context.Background(), "nope")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	t.Run("Failure Leaves Note Present and Unchanged", func(t *testing.T) {
		store := memory.New()
		seed(store, "a", "A", time.Now())
		e := newEngine(t, store)
		_, err := e.List(context.Background())
		require.NoError(t, err)
		before, _ := e.Note("a")

		store.FailNext(memory.OpDelete, errOffline)
		err = e.Delete(context.Background(), "a")
		var we *core.WriteError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, core.OpDelete, we.Op)

		after, ok := e.Note("a")
		require.True(t, ok)
		assert.Equal(t, before, after)
	})

	t.Run("Success Removes Exactly That Note and Closes Its Session", func(t *testing.T) {
		store := memory.New()
		seed(store, "a", "A", time.Now().Add(-time.Hour))
		seed(store, "b", "B", time.Now())
		e := newEngine(t, store)
		_, err := e.List(context.Background())
		require.NoError(t, err)

		require.NoError(t, e.OpenForEdit("a"))
		require.NoError(t, e.SetTitle("doomed"))
		require.NoError(t, e.Delete(context.Background(), "a"))

		_, ok := e.Note("a")
		assert.False(t, ok)
		_, ok = e.Note("b")
		assert.True(t, ok)
		_, _, editing := e.Current()
		assert.False(t, editing)

		time.Sleep(3 * interval)
		assert.Empty(t, store.Calls(memory.OpUpdate), "pending save is defused")
	})

	t.Run("In-Flight Save Completing After Delete Is a No-op", func(t *testing.T) {
		store := memory.New()
		seed(store, "a", "A", time.Now().Add(-time.Hour))
		seed(store, "b", "B", time.Now())
		e := newEngine(t, store)
		_, err := e.List(context.Background())
		require.NoError(t, err)

		started := make(chan struct{})
		release := make(chan struct{})
		store.SetHook(func(ctx context.Context, op memory.Op, id string) error {
			if op == memory.OpUpdate {
				close(started)
				<-release
			}
			return nil
		})

		require.NoError(t, e.OpenForEdit("a"))
		require.NoError(t, e.SetTitle("late"))
		e.CloseEdit()
		<-started

		store.SetHook(nil)
		require.NoError(t, e.Delete(context.Background(), "a"))
		close(release)

		time.Sleep(3 * interval)
		_, ok := e.Note("a")
		assert.False(t, ok)
		notes := e.Notes()
		require.Len(t, notes, 1)
		assert.Equal(t, "B", notes[0].Title)
	})
}

func TestFilter(t *testing.T) {
	store := memory.New()
	store.Put(core.Note{ID: "a", OwnerID: owner, Tags: core.NewTags("reg/gdpr"), CreatedAt: time.Now()})
	store.Put(core.Note{ID: "b", OwnerID: owner, Tags: core.NewTags("aml"), CreatedAt: time.Now()})
	e := newEngine(t, store)
	_, err := e.List(context.Background())
	require.NoError(t, err)

	got, err := e.Filter("reg/*")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestClose(t *testing.T) {
	store := memory.New()
	seed(store, "a", "A", time.Now())
	e := engine.New(store, owner, engine.WithDebounce(time.Hour))
	_, err := e.List(context.Background())
	require.NoError(t, err)

	require.NoError(t, e.OpenForEdit("a"))
	require.NoError(t, e.SetTitle("flushed on close"))

	st := e.State().(engine.EngineState)
	assert.Equal(t, 1, st.PendingSaves)
	assert.Equal(t, "a", st.Editing)
	assert.Equal(t, "engine", e.ComponentType())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.Close(ctx))

	stored, _ := store.Get("a")
	assert.Equal(t, "flushed on close", stored.Title)

	_, err = e.List(context.Background())
	assert.ErrorIs(t, err, engine.ErrClosed)
	for range e.Events() {
		// drained; channel is closed
	}
}

// heldList answers List with the rows present when it was called, but only
// once released. Until hold is set it passes straight through.
type heldList struct {
	*memory.Store
	hold    bool
	listed  chan struct{}
	release chan struct{}
}

func newHeldList() *heldList {
	return &heldList{Store: memory.New(), listed: make(chan struct{}), release: make(chan struct{})}
}

func (s *heldList) List(ctx context.Context, ownerID string) ([]core.Note, error) {
	notes, err := s.Store.List(ctx, ownerID)
	if s.hold {
		close(s.listed)
		<-s.release
	}
	return notes, err
}

// listInBackground starts a held List and waits until its rows are read.
func listInBackground(t *testing.T, store *heldList, e *engine.Engine) <-chan error {
	t.Helper()
	store.hold = true
	done := make(chan error, 1)
	go func() {
		_, err := e.List(context.Background())
		done <- err
	}()
	<-store.listed
	return done
}

func TestList_MergesChangesMadeDuringFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("Note Created During Fetch Survives It and Saves", func(t *testing.T) {
		store := newHeldList()
		seed(store.Store, "a", "A", time.Now().Add(-time.Hour))
		e := newEngine(t, store)

		// 1. Fetch reads its rows, then stalls
		done := listInBackground(t, store, e)

		// 2. Create and edit while the fetch is stalled
		n, err := e.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, e.SetTitle("GDPR"))

		// 3. Fetch completes with rows that predate the new note
		close(store.release)
		require.NoError(t, <-done)

		_, ok := e.Note(n.ID)
		require.True(t, ok, "created note must stay in the collection")
		notes := e.Notes()
		require.Len(t, notes, 2)
		assert.Equal(t, n.ID, notes[0].ID)

		require.Eventually(t, func() bool { return e.Status(n.ID) == engine.StatusSaved }, 2*time.Second, 5*time.Millisecond)
		stored, _ := store.Get(n.ID)
		assert.Equal(t, "GDPR", stored.Title)
	})

	t.Run("Favorite Flipped During Fetch Is Not Overwritten", func(t *testing.T) {
		store := newHeldList()
		seed(store.Store, "a", "A", time.Now().Add(-time.Hour))
		e := newEngine(t, store)
		_, err := e.List(ctx)
		require.NoError(t, err)

		done := listInBackground(t, store, e)
		fav, err := e.ToggleFavorite(ctx, "a")
		require.NoError(t, err)
		require.True(t, fav)
		close(store.release)
		require.NoError(t, <-done)

		n, _ := e.Note("a")
		stored, _ := store.Get("a")
		assert.True(t, n.IsFavorite)
		assert.Equal(t, stored.IsFavorite, n.IsFavorite)
	})

	t.Run("Note Deleted During Fetch Stays Gone", func(t *testing.T) {
		store := newHeldList()
		seed(store.Store, "a", "A", time.Now().Add(-time.Hour))
		seed(store.Store, "b", "B", time.Now())
		e := newEngine(t, store)
		_, err := e.List(ctx)
		require.NoError(t, err)

		done := listInBackground(t, store, e)
		require.NoError(t, e.Delete(ctx, "a"))
		close(store.release)
		require.NoError(t, <-done)

		_, ok := e.Note("a")
		assert.False(t, ok)
		assert.Len(t, e.Notes(), 1)
	})

	t.Run("Rows Removed Elsewhere Are Dropped", func(t *testing.T) {
		store := newHeldList()
		seed(store.Store, "a", "A", time.Now().Add(-time.Hour))
		seed(store.Store, "b", "B", time.Now())
		e := newEngine(t, store)
		_, err := e.List(ctx)
		require.NoError(t, err)

		require.NoError(t, store.Store.Delete(ctx, owner, "a"))
		notes, err := e.List(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, "b", notes[0].ID)
	})
}

func TestAutosave_EditedNoteRemovedElsewhere(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(store, "a", "A", time.Now().Add(-time.Hour))
	e := newEngine(t, store, engine.WithDebounce(150*time.Millisecond))
	_, err := e.List(ctx)
	require.NoError(t, err)

	// 1. Edit, then the row disappears and a reload drops it
	require.NoError(t, e.OpenForEdit("a"))
	require.NoError(t, e.SetTitle("orphan"))
	require.NoError(t, store.Delete(ctx, owner, "a"))
	_, err = e.List(ctx)
	require.NoError(t, err)

	// 2. The debounced save reports failure instead of staying pending
	require.Eventually(t, func() bool { return e.Status("a") == engine.StatusFailed }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, updates(store))
}

func TestClose_AcceptLossDiscardsPendingSaves(t *testing.T) {
	store := memory.New()
	seed(store, "a", "A", time.Now())
	e := engine.New(store, owner, engine.WithDebounce(time.Hour), engine.WithFlushOnClose(false))
	_, err := e.List(context.Background())
	require.NoError(t, err)

	require.NoError(t, e.OpenForEdit("a"))
	require.NoError(t, e.SetTitle("lost"))
	require.Equal(t, engine.StatusPending, e.Status("a"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.Close(ctx))

	stored, _ := store.Get("a")
	assert.Equal(t, "A", stored.Title)
	assert.Empty(t, store.Calls(memory.OpUpdate))
	assert.Equal(t, engine.StatusIdle, e.Status("a"))
}
