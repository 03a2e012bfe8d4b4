package platform

import (
	"log/slog"

	"github.com/aretw0/glossa/internal/telemetry"
	"github.com/aretw0/glossa/pkg/ai"
	"github.com/aretw0/glossa/pkg/core"
	"github.com/aretw0/glossa/pkg/speech"
)

// options holds the internal configuration of an App.
type options struct {
	store     core.Store
	auth      core.AuthProvider
	generator ai.Generator
	speaker   speech.Speaker
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// Option defines a functional option for configuring an App.
type Option func(*options)

func defaultOptions() *options {
	return &options{}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a note store (e.g. memory, for tests).
// If provided, the configured driver is skipped.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAuth injects an account provider.
// If provided, the local sqlite accounts are skipped.
func WithAuth(auth core.AuthProvider) Option {
	return func(o *options) {
		o.auth = auth
	}
}

// WithGenerator injects the generation backend.
// If provided, no API key is required.
func WithGenerator(g ai.Generator) Option {
	return func(o *options) {
		o.generator = g
	}
}

// WithSpeaker injects the audio backend.
func WithSpeaker(s speech.Speaker) Option {
	return func(o *options) {
		o.speaker = s
	}
}

// WithMetrics registers the metrics every component reports to.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
