package glossa

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/glossa/internal/platform"
	"github.com/aretw0/glossa/internal/telemetry"
	"github.com/aretw0/glossa/pkg/ai"
	"github.com/aretw0/glossa/pkg/core"
	"github.com/aretw0/glossa/pkg/engine"
	"github.com/aretw0/glossa/pkg/speech"
)

// --- Types ---

// Note is a study note.
type Note = core.Note

// Engine is the note engine of a signed-in user.
type Engine = engine.Engine

// App is an opened application: stores, session and adapters.
type App = platform.App

// Config is the application configuration.
type Config = platform.Config

// Metrics collects Prometheus metrics.
type Metrics = telemetry.Metrics

// --- Configuration ---

// Option defines a functional option for Open.
type Option = platform.Option

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a note store, skipping the configured driver.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithAuth injects an account provider, skipping local accounts.
func WithAuth(auth core.AuthProvider) Option {
	return platform.WithAuth(auth)
}

// WithGenerator injects the generation backend.
func WithGenerator(g ai.Generator) Option {
	return platform.WithGenerator(g)
}

// WithSpeaker injects the audio backend.
func WithSpeaker(s speech.Speaker) Option {
	return platform.WithSpeaker(s)
}

// WithMetrics registers a metrics collector.
func WithMetrics(m *Metrics) Option {
	return platform.WithMetrics(m)
}

// --- Entry points ---

// LoadConfig reads glossa.yaml, the GLOSSA_ environment and .env.
func LoadConfig(file string) (*Config, error) {
	cfg, _, err := platform.LoadConfig(file)
	return cfg, err
}

// Open wires the application from cfg.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	return platform.Open(ctx, cfg, opts...)
}

// NewEngine creates a note engine on an explicit store, for embedding the
// engine without the rest of the application.
func NewEngine(store core.Store, ownerID string, debounce time.Duration, logger *slog.Logger) *Engine {
	return engine.New(store, ownerID, engine.WithDebounce(debounce), engine.WithLogger(logger))
}

// NewMetrics creates a metrics collector on a private registry.
func NewMetrics() *Metrics {
	return telemetry.New()
}
