package engine

import (
	"log/slog"
	"time"
)

// DefaultDebounce is the quiet period after the last edit before a save.
const DefaultDebounce = time.Second

// options holds the internal configuration of an Engine.
type options struct {
	debounce     time.Duration
	flushOnClose bool
	writeTimeout time.Duration
	eventBuffer  int
	logger       *slog.Logger
	now          func() time.Time
	recorder     Recorder
}

// Option defines a functional option for configuring an Engine.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		debounce:     DefaultDebounce,
		flushOnClose: true,
		writeTimeout: 15 * time.Second,
		eventBuffer:  100,
		logger:       nil,
		now:          time.Now,
		recorder:     nopRecorder{},
	}
}

// WithDebounce sets the debounce interval. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithFlushOnClose controls what happens to a pending debounced save when the
// edit session closes (CloseEdit or opening another note).
// When true (the default) the save is sent immediately; when false the timer
// is defused and edits made within the last debounce window are discarded.
func WithFlushOnClose(flush bool) Option {
	return func(o *options) {
		o.flushOnClose = flush
	}
}

// WithWriteTimeout bounds each background save.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithEventBuffer sets the size of the event channel buffer.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.eventBuffer = size
		}
	}
}

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces the clock used for modified timestamps (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRecorder registers a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// Recorder receives engine measurements.
type Recorder interface {
	ObserveFetch(err error)
	ObserveSave(elapsed time.Duration, err error)
	ObserveRollback()
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(error)               {}
func (nopRecorder) ObserveSave(time.Duration, error) {}
func (nopRecorder) ObserveRollback()                 {}
