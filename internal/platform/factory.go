package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/glossa/internal/telemetry"
	"github.com/aretw0/glossa/pkg/adapters/anthropic"
	"github.com/aretw0/glossa/pkg/adapters/postgres"
	"github.com/aretw0/glossa/pkg/adapters/sqlite"
	"github.com/aretw0/glossa/pkg/ai"
	"github.com/aretw0/glossa/pkg/core"
	"github.com/aretw0/glossa/pkg/engine"
	"github.com/aretw0/glossa/pkg/session"
	"github.com/aretw0/glossa/pkg/speech"
)

// DatabaseFile is the name of the local database inside the data dir.
const DatabaseFile = "glossa.db"

// ErrNoAPIKey is returned by App.AI when no generation backend is configured.
var ErrNoAPIKey = errors.New("no AI API key: set GLOSSA_AI_API_KEY or ANTHROPIC_API_KEY")

// App wires the configured adapters together.
type App struct {
	Config  *Config
	Logger  *slog.Logger
	Session *session.Session
	DataDir string

	store     core.Store
	auth      core.AuthProvider
	generator ai.Generator
	speaker   speech.Speaker
	metrics   *telemetry.Metrics
	closers   []func() error
}

// Open opens the stores and restores the session.
//
//	app, err := platform.Open(ctx, cfg, platform.WithLogger(logger))
func Open(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sandbox := cfg.DevSafety && IsDevRun()
	dataDir := ResolveDataDir(cfg.DataDir, sandbox)
	if sandbox && dataDir != cfg.DataDir {
		logger.Warn("running in SAFE MODE (dev sandbox)", "original_path", cfg.DataDir, "resolved_path", dataDir)
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		DataDir:   dataDir,
		store:     o.store,
		generator: o.generator,
		speaker:   o.speaker,
		metrics:   o.metrics,
	}

	// 1. Local database: accounts always, notes unless another driver is used
	auth := o.auth
	needDB := auth == nil || (app.store == nil && cfg.Store.Driver == "sqlite")
	var db *sqlite.DB
	if needDB {
		var err error
		db, err = sqlite.Open(filepath.Join(dataDir, DatabaseFile))
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		if err := db.Initialize(ctx); err != nil {
			_ = app.Close()
			return nil, err
		}
	}
	if auth == nil {
		auth = sqlite.NewAuth(db, sqlite.AuthConfig{RequireConfirmation: cfg.Auth.RequireConfirmation})
	}
	app.auth = auth

	// 2. Note store
	if app.store == nil {
		switch cfg.Store.Driver {
		case "sqlite":
			app.store = db
		case "postgres":
			pg, err := postgres.Open(ctx, cfg.Store.PostgresDSN)
			if err != nil {
				_ = app.Close()
				return nil, err
			}
			app.closers = append(app.closers, pg.Close)
			if err := pg.Initialize(ctx); err != nil {
				_ = app.Close()
				return nil, err
			}
			app.store = pg
		default:
			_ = app.Close()
			return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
		}
	}

	// 3. Session
	sess, err := session.New(ctx, auth, session.WithLogger(logger))
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	app.Session = sess
	app.closers = append(app.closers, func() error { sess.Close(); return nil })

	logger.Debug("app opened", "data_dir", dataDir, "store", cfg.Store.Driver)
	return app, nil
}

// Store returns the note store.
func (a *App) Store() core.Store { return a.store }

// Confirm confirms a new account with the token issued at sign-up.
func (a *App) Confirm(ctx context.Context, token string) (core.User, error) {
	return a.auth.Confirm(ctx, token)
}

// Engine creates a note engine for the signed-in user and loads the notes.
// The caller must Close it.
func (a *App) Engine(ctx context.Context) (*engine.Engine, error) {
	owner, err := a.Session.OwnerID()
	if err != nil {
		return nil, err
	}
	opts := []engine.Option{
		engine.WithDebounce(a.Config.Engine.Debounce),
		engine.WithFlushOnClose(a.Config.Engine.FlushOnClose),
		engine.WithWriteTimeout(a.Config.Engine.WriteTimeout),
		engine.WithLogger(a.Logger),
	}
	if a.metrics != nil {
		opts = append(opts, engine.WithRecorder(a.metrics))
	}

	e := engine.New(a.store, owner, opts...)
	if _, err := e.List(ctx); err != nil {
		_ = e.Close(ctx)
		return nil, err
	}
	return e, nil
}

// AI returns the generation client.
func (a *App) AI() (*ai.Client, error) {
	if a.generator == nil {
		if a.Config.AI.APIKey == "" {
			return nil, ErrNoAPIKey
		}
		g, err := anthropic.New(anthropic.Config{
			APIKey:  a.Config.AI.APIKey,
			Model:   a.Config.AI.Model,
			BaseURL: a.Config.AI.BaseURL,
			Logger:  a.Logger,
		})
		if err != nil {
			return nil, err
		}
		a.generator = g
	}

	opts := []ai.Option{
		ai.WithLogger(a.Logger),
		ai.WithCorpusLimit(a.Config.AI.CorpusLimit),
		ai.WithQuizSize(a.Config.AI.QuizSize),
		ai.WithMaxTokens(a.Config.AI.MaxTokens),
	}
	if a.metrics != nil {
		opts = append(opts, ai.WithRecorder(a.metrics))
	}
	return ai.NewClient(a.generator, opts...), nil
}

// Speaker returns the audio backend; Nop when speech is disabled.
func (a *App) Speaker(ctx context.Context) speech.Speaker {
	if a.speaker != nil {
		return a.speaker
	}
	if !a.Config.Speech.Enabled {
		return speech.Nop{}
	}
	return speech.NewCommandSpeaker(ctx, a.Config.Speech.Command, a.Logger)
}

// Close releases the stores in reverse opening order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
