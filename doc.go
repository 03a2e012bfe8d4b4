// Package glossa is the composition root of Glossa, a study aid for learners
// of compliance-domain English.
//
// It connects the note engine (optimistic edits, debounced persistence,
// reconciliation by id) with the storage, account and AI adapters using the
// hexagonal layout of pkg/core (ports) and pkg/adapters (implementations).
//
// Features:
//
//   - **Note Engine**: in-memory collection kept consistent with a remote row store.
//   - **Debounced Saves**: rapid edits coalesce into one write per note.
//   - **Optimistic Favorites**: toggles apply at once and revert on failure.
//   - **AI Client**: glossary lookup, text transforms, quizzes and a grounded news briefing.
//   - **Backends**: embedded SQLite (default), PostgreSQL, or an in-memory store for tests.
//
// Usage:
//
//	cfg, _, err := glossa.LoadConfig("")
//	app, err := glossa.Open(ctx, cfg, glossa.WithLogger(logger))
//	defer app.Close()
//
//	notes, err := app.Engine(ctx)
//	note, err := notes.Create(ctx)
//	err = notes.SetTitle("GDPR")
package glossa
