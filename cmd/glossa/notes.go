package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	notelife "github.com/aretw0/glossa/pkg/adapters/lifecycle"
	"github.com/aretw0/glossa/pkg/core"
	"github.com/aretw0/glossa/pkg/engine"
)

var (
	listFormat    string
	listJSON      bool
	listTag       string
	listSince     string
	listFavorites bool

	noteTitle      string
	noteContent    string
	noteTags       []string
	noteRemoveTags []string

	rmYes bool
)

var notesCmd = &cobra.Command{
	Use:     "notes",
	Aliases: []string{"n"},
	Short:   "Manage your study notes",
}

// withEngine opens the note engine, runs fn and closes the engine, flushing
// pending saves. The save status is printed to stderr while fn runs.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *engine.Engine) error) error {
	ctx := cmd.Context()
	e, err := app.Engine(ctx)
	if err != nil {
		return err
	}
	done := watchSaves(ctx, e, cmd.ErrOrStderr())

	runErr := fn(ctx, e)

	closeCtx, cancel := context.WithTimeout(context.Background(), app.Config.Engine.WriteTimeout+time.Second)
	defer cancel()
	closeErr := e.Close(closeCtx)
	<-done
	return errors.Join(runErr, closeErr)
}

// watchSaves prints the saving/saved/error indicator until the engine's
// event stream is closed.
func watchSaves(ctx context.Context, e *engine.Engine, w io.Writer) <-chan struct{} {
	done := make(chan struct{})
	src := notelife.NewSource(e.Events(), notelife.StatusTypes...)
	// The stream ends when the engine closes, not when ctx is cancelled.
	if err := src.Start(context.WithoutCancel(ctx)); err != nil {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		for ev := range src.Events() {
			ne, ok := ev.(core.Event)
			if !ok {
				continue
			}
			switch ne.Type {
			case core.EventSaving:
				fmt.Fprintln(w, mutedStyle.Render("saving "+ne.ID+"..."))
			case core.EventSaved:
				fmt.Fprintln(w, okStyle.Render("saved ")+mutedStyle.Render(ne.ID))
			case core.EventSaveFailed, core.EventReverted:
				fmt.Fprintln(w, errorStyle.Render("error ")+ne.String())
			}
		}
	}()
	return done
}

// parseSince accepts natural language ("yesterday", "last friday") or RFC 3339.
func parseSince(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, now)
	if err != nil {
		return time.Time{}, err
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand --since %q", s)
	}
	return r.Time, nil
}

func printNote(w io.Writer, n core.Note, full bool) {
	title := n.Title
	if title == "" {
		title = "(untitled)"
	}
	star := "  "
	if n.IsFavorite {
		star = favStyle.Render("★ ")
	}
	fmt.Fprintf(w, "%s%s %s\n", star, titleStyle.Render(title), mutedStyle.Render(n.ID))

	var tags []string
	for _, t := range n.Tags {
		tags = append(tags, tagStyle.Render("#"+t))
	}
	meta := mutedStyle.Render("updated " + humanize.Time(n.LastModified))
	if len(tags) > 0 {
		meta = strings.Join(tags, " ") + "  " + meta
	}
	fmt.Fprintf(w, "  %s\n", meta)

	if full && n.Content != "" {
		fmt.Fprintln(w, boxStyle.Render(n.Content))
	}
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notes, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
			notes := e.Notes()
			if listTag != "" {
				var err error
				if notes, err = e.Filter(listTag); err != nil {
					return fmt.Errorf("invalid --tag pattern: %w", err)
				}
			}
			var since time.Time
			if listSince != "" {
				var err error
				if since, err = parseSince(listSince, time.Now()); err != nil {
					return err
				}
			}

			filtered := notes[:0:0]
			for _, n := range notes {
				if listFavorites && !n.IsFavorite {
					continue
				}
				if !since.IsZero() && n.LastModified.Before(since) {
					continue
				}
				filtered = append(filtered, n)
			}

			format := listFormat
			if listJSON {
				format = "json"
			}
			if ok, err := printStructured(out(cmd), format, filtered); ok {
				return err
			}
			if len(filtered) == 0 {
				fmt.Fprintln(out(cmd), mutedStyle.Render("No notes yet. Create one with 'glossa notes new'."))
				return nil
			}
			for _, n := range filtered {
				printNote(out(cmd), n, false)
			}
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
			n, ok := e.Note(args[0])
			if !ok {
				return fmt.Errorf("note %s: %w", args[0], core.ErrNotFound)
			}
			if ok, err := printStructured(out(cmd), listFormat, n); ok {
				return err
			}
			printNote(out(cmd), n, true)
			return nil
		})
	},
}

// applyEdits feeds the edit flags into the open edit session.
func applyEdits(cmd *cobra.Command, e *engine.Engine) error {
	if cmd.Flags().Changed("title") {
		if err := e.SetTitle(noteTitle); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("content") {
		content := noteContent
		if content == "-" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			content = string(b)
		}
		if err := e.SetContent(content); err != nil {
			return err
		}
	}
	for _, t := range noteTags {
		if err := e.AddTag(t); err != nil {
			return err
		}
	}
	for _, t := range noteRemoveTags {
		if err := e.RemoveTag(t); err != nil {
			return err
		}
	}
	return nil
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var id string
		err := withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
			n, err := e.Create(ctx)
			if err != nil {
				return err
			}
			id = n.ID
			return applyEdits(cmd, e)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), id)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit the title, content or tags of a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var eng *engine.Engine
		err := withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
			eng = e
			if err := e.OpenForEdit(args[0]); err != nil {
				return fmt.Errorf("note %s: %w", args[0], err)
			}
			return applyEdits(cmd, e)
		})
		if err != nil {
			return err
		}
		// withEngine has flushed by now.
		if eng.Status(args[0]) == engine.StatusFailed {
			return fmt.Errorf("note %s was not saved", args[0])
		}
		return nil
	},
}

var favCmd = &cobra.Command{
	Use:   "fav [id]",
	Short: "Toggle the favorite flag of a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
			before, ok := e.Note(args[0])
			if !ok {
				return fmt.Errorf("note %s: %w", args[0], core.ErrNotFound)
			}
			fav, err := e.ToggleFavorite(ctx, args[0])
			if err != nil {
				return err
			}
			if fav == before.IsFavorite {
				return fmt.Errorf("note %s: favorite could not be saved", args[0])
			}
			if fav {
				fmt.Fprintln(out(cmd), favStyle.Render("★ ")+"added to favorites")
			} else {
				fmt.Fprintln(out(cmd), "removed from favorites")
			}
			return nil
		})
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"delete"},
	Short:   "Delete a note",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
			n, ok := e.Note(args[0])
			if !ok {
				return fmt.Errorf("note %s: %w", args[0], core.ErrNotFound)
			}
			if !rmYes {
				confirmed := false
				err := huh.NewConfirm().
					Title(fmt.Sprintf("Delete %q?", n.Title)).
					Affirmative("Delete").
					Negative("Keep").
					Value(&confirmed).
					Run()
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("kept"))
					return nil
				}
			}
			if err := e.Delete(ctx, n.ID); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), "deleted "+n.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(notesCmd)
	notesCmd.AddCommand(listCmd, showCmd, newCmd, editCmd, favCmd, rmCmd)

	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().StringVar(&listFormat, "format", "", "Output format: json or yaml")
	listCmd.Flags().StringVarP(&listTag, "tag", "t", "", "Only notes with a tag matching this glob (e.g. 'gdpr/*')")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only notes updated since (e.g. 'yesterday', '2026-01-02')")
	listCmd.Flags().BoolVarP(&listFavorites, "favorites", "f", false, "Only favorite notes")

	showCmd.Flags().StringVar(&listFormat, "format", "", "Output format: json or yaml")

	for _, c := range []*cobra.Command{newCmd, editCmd} {
		c.Flags().StringVar(&noteTitle, "title", "", "Note title")
		c.Flags().StringVar(&noteContent, "content", "", "Note content ('-' reads stdin)")
		c.Flags().StringSliceVar(&noteTags, "tag", nil, "Add a tag (repeatable)")
	}
	editCmd.Flags().StringSliceVar(&noteRemoveTags, "remove-tag", nil, "Remove a tag (repeatable)")

	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "Delete without asking")
}
