// Package debounce provides a keyed, cancellable deferred-task scheduler.
//
// Scheduling a task under a key cancels whatever was pending for that key,
// so only a timer that survives its full delay uninterrupted runs.
package debounce

import (
	"sync"
	"time"
)

// Task is the deferred work.
type Task func()

// Handle refers to one scheduled task.
type Handle struct {
	d   *Debouncer
	key string
	seq uint64
}

// Cancel defuses the task if it is still the pending one for its key.
// It reports whether a pending task was cancelled.
func (h Handle) Cancel() bool {
	if h.d == nil {
		return false
	}
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	e, ok := h.d.pending[h.key]
	if !ok || e.seq != h.seq {
		return false
	}
	e.timer.Stop()
	delete(h.d.pending, h.key)
	return true
}

type entry struct {
	timer *time.Timer
	task  Task
	seq   uint64
}

// Debouncer holds at most one pending task per key.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]*entry
	seq     uint64
	stopped bool
	running sync.WaitGroup
}

// New creates an empty Debouncer.
func New() *Debouncer {
	return &Debouncer{pending: make(map[string]*entry)}
}

// Schedule installs task to run after delay under key, cancelling any task
// still pending for the same key. After StopAndWait it returns a zero Handle
// and the task never runs.
func (d *Debouncer) Schedule(key string, delay time.Duration, task Task) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return Handle{}
	}
	if old, ok := d.pending[key]; ok {
		old.timer.Stop()
	}

	d.seq++
	seq := d.seq
	e := &entry{task: task, seq: seq}
	e.timer = time.AfterFunc(delay, func() { d.fire(key, seq) })
	d.pending[key] = e

	return Handle{d: d, key: key, seq: seq}
}

func (d *Debouncer) fire(key string, seq uint64) {
	d.mu.Lock()
	e, ok := d.pending[key]
	// A superseded timer may still fire if Stop lost the race.
	if !ok || e.seq != seq || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	e.task()
}

// Cancel defuses the pending task for key and reports whether there was one.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)
	return true
}

// Flush runs the pending task for key immediately on the calling goroutine.
// It reports whether there was a pending task.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	e, ok := d.pending[key]
	if !ok || d.stopped {
		d.mu.Unlock()
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	e.task()
	return true
}

// FlushAll runs every pending task immediately and returns how many ran.
func (d *Debouncer) FlushAll() int {
	d.mu.Lock()
	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	d.mu.Unlock()

	n := 0
	for _, k := range keys {
		if d.Flush(k) {
			n++
		}
	}
	return n
}

// Pending reports whether a task is waiting for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Len returns the number of pending tasks.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// StopAndWait stops accepting new tasks, drops pending ones and waits up to
// timeout for running tasks to finish. It reports whether they all finished.
func (d *Debouncer) StopAndWait(timeout time.Duration) bool {
	d.mu.Lock()
	d.stopped = true
	for k, e := range d.pending {
		e.timer.Stop()
		delete(d.pending, k)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
