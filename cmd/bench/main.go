// Command bench measures loading a large notebook and how many writes a burst
// of keystrokes costs once the engine debounces them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/aretw0/glossa/pkg/adapters/sqlite"
	"github.com/aretw0/glossa/pkg/core"
	"github.com/aretw0/glossa/pkg/engine"
)

// countingStore counts the updates that reach the database.
type countingStore struct {
	core.Store
	updates atomic.Int64
}

func (s *countingStore) Update(ctx context.Context, ownerID, id string, p core.Patch) error {
	s.updates.Add(1)
	return s.Store.Update(ctx, ownerID, id, p)
}

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	keys := flag.Int("keys", 200, "Keystrokes in the edit burst")
	gap := flag.Duration("gap", 2*time.Millisecond, "Delay between keystrokes")
	debounce := flag.Duration("debounce", engine.DefaultDebounce, "Engine debounce interval")
	keep := flag.Bool("keep", false, "Keep the benchmark database after running")
	flag.Parse()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// 1. Setup database
	benchDir, err := os.MkdirTemp("", "glossa_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	db, err := sqlite.Open(filepath.Join(benchDir, "bench.db"))
	if err != nil {
		panic(err)
	}
	defer db.Close()
	if err := db.Initialize(ctx); err != nil {
		panic(err)
	}

	const owner = "bench"
	fmt.Printf("Generating %d notes in %s...\n", *count, benchDir)
	startGen := time.Now()
	for i := 0; i < *count; i++ {
		n, err := db.Insert(ctx, owner)
		if err != nil {
			panic(err)
		}
		d := core.Draft{
			Title:   fmt.Sprintf("Term %d", i),
			Content: "Benchmark note about data retention obligations.",
			Tags:    core.NewTags("benchmark", "gdpr"),
		}
		if err := db.Update(ctx, owner, n.ID, core.DraftPatch(d, time.Now())); err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	// 2. Load
	store := &countingStore{Store: db}
	e := engine.New(store, owner, engine.WithDebounce(*debounce), engine.WithLogger(logger))
	startList := time.Now()
	notes, err := e.List(ctx)
	if err != nil {
		panic(err)
	}
	loadTime := time.Since(startList)

	// 3. Edit burst
	if err := e.OpenForEdit(notes[0].ID); err != nil {
		panic(err)
	}
	content := notes[0].Content
	startBurst := time.Now()
	for i := 0; i < *keys; i++ {
		content += "x"
		if err := e.SetContent(content); err != nil {
			panic(err)
		}
		time.Sleep(*gap)
	}
	if err := e.Close(ctx); err != nil {
		panic(err)
	}
	burstTime := time.Since(startBurst)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes):\n", *count)
	fmt.Printf("  Load:   %v\n", loadTime)
	fmt.Printf("  Burst:  %d keystrokes in %v\n", *keys, burstTime)
	fmt.Printf("  Writes: %d (debounce %v)\n", store.updates.Load(), *debounce)
	fmt.Printf("--------------------------------------------------\n")
}
