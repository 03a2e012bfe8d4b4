package platform_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/glossa/internal/platform"
	"github.com/aretw0/glossa/internal/telemetry"
	"github.com/aretw0/glossa/pkg/adapters/memory"
	"github.com/aretw0/glossa/pkg/ai"
	"github.com/aretw0/glossa/pkg/core"
	"github.com/aretw0/glossa/pkg/speech"
)

func testConfig(t *testing.T) *platform.Config {
	return &platform.Config{
		LogLevel:  "info",
		DataDir:   t.TempDir(),
		DevSafety: true,
		Store:     platform.StoreConfig{Driver: "sqlite"},
		Engine: platform.EngineConfig{
			Debounce:     20 * time.Millisecond,
			FlushOnClose: true,
			WriteTimeout: time.Second,
		},
		AI: platform.AIConfig{Model: "claude-sonnet-4-5", MaxTokens: 1024, CorpusLimit: 12000, QuizSize: 5},
	}
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, ai.Request) (ai.Response, error) {
	return ai.Response{Text: "ok"}, nil
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	app, err := platform.Open(ctx, cfg)
	require.NoError(t, err)
	defer app.Close()
	assert.Equal(t, cfg.DataDir, app.DataDir, "temp dirs are already sandboxed")

	// 1. No engine before sign-in
	_, err = app.Engine(ctx)
	assert.ErrorIs(t, err, core.ErrNotSignedIn)

	// 2. Sign up signs in
	pending, err := app.Session.SignUp(ctx, "ana@example.com", "secret1", "Ana")
	require.NoError(t, err)
	require.False(t, pending)

	// 3. Engine writes through the local database
	e, err := app.Engine(ctx)
	require.NoError(t, err)
	n, err := e.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, e.SetTitle("GDPR"))
	require.NoError(t, e.Close(ctx))

	notes, err := app.Store().List(ctx, e.Owner())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, n.ID, notes[0].ID)
	assert.Equal(t, "GDPR", notes[0].Title)
}

func TestOpen_SessionSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	app, err := platform.Open(ctx, cfg)
	require.NoError(t, err)
	_, err = app.Session.SignUp(ctx, "ana@example.com", "secret1", "")
	require.NoError(t, err)
	require.NoError(t, app.Close())

	app, err = platform.Open(ctx, cfg)
	require.NoError(t, err)
	defer app.Close()
	u, ok := app.Session.User()
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", u.Email)
}

func TestOpen_Injected(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Speech.Enabled = false
	store := memory.New()
	metrics := telemetry.New()

	app, err := platform.Open(ctx, cfg,
		platform.WithStore(store),
		platform.WithGenerator(stubGenerator{}),
		platform.WithMetrics(metrics),
	)
	require.NoError(t, err)
	defer app.Close()

	assert.Same(t, store, app.Store())
	assert.Equal(t, speech.Nop{}, app.Speaker(ctx))

	client, err := app.AI()
	require.NoError(t, err)
	out, err := client.Transform(ctx, "text", ai.Simplify)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestApp_AIWithoutKey(t *testing.T) {
	ctx := context.Background()
	app, err := platform.Open(ctx, testConfig(t), platform.WithStore(memory.New()))
	require.NoError(t, err)
	defer app.Close()

	_, err = app.AI()
	assert.ErrorIs(t, err, platform.ErrNoAPIKey)
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "mongo"
	_, err := platform.Open(context.Background(), cfg)
	assert.Error(t, err)
}
