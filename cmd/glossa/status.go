package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"

	"github.com/aretw0/glossa/pkg/core"
	"github.com/aretw0/glossa/pkg/engine"
	"github.com/aretw0/glossa/pkg/session"
)

var (
	statusFormat  string
	statusMermaid bool
)

// componentState is the introspected state of the running components.
type componentState struct {
	Session session.SessionState `json:"session" yaml:"session"`
	Engine  *engine.EngineState  `json:"engine,omitempty" yaml:"engine,omitempty"`
}

type statusNode struct {
	Name     string
	Status   string
	Metadata map[string]string
	Children []statusNode
}

// buildStatusTree maps component state onto the node shape TreeDiagram
// renders. Status values are introspection style classes.
func buildStatusTree(st componentState) statusNode {
	sess := statusNode{
		Name:     "Session",
		Status:   "suspended",
		Metadata: map[string]string{"type": "container"},
	}
	if st.Session.SignedIn {
		sess.Status = "running"
		sess.Metadata["user"] = st.Session.Email
	}

	root := statusNode{
		Name:     "Glossa",
		Status:   "running",
		Metadata: map[string]string{"type": "process"},
		Children: []statusNode{sess},
	}
	if st.Engine == nil {
		return root
	}

	eng := statusNode{
		Name:   "Engine",
		Status: "running",
		Metadata: map[string]string{
			"type":  "process",
			"notes": strconv.Itoa(st.Engine.Notes),
		},
	}
	if !st.Engine.Loaded {
		eng.Status = "pending"
	}
	for _, id := range slices.Sorted(maps.Keys(st.Engine.Status)) {
		s := st.Engine.Status[id]
		child := statusNode{Name: "Note " + id, Metadata: map[string]string{"type": "goroutine"}}
		switch s {
		case engine.StatusSaving.String(), engine.StatusPending.String():
			child.Status = "running"
		case engine.StatusFailed.String():
			child.Status = "failed"
		default:
			child.Status = "finished"
		}
		eng.Children = append(eng.Children, child)
	}
	root.Children = append(root.Children, eng)
	return root
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the session and the note engine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := componentState{Session: app.Session.State().(session.SessionState)}

		if st.Session.SignedIn {
			e, err := app.Engine(cmd.Context())
			if err != nil && !errors.Is(err, core.ErrNotSignedIn) {
				return err
			}
			if e != nil {
				es := e.State().(engine.EngineState)
				st.Engine = &es
				if err := e.Close(cmd.Context()); err != nil {
					return err
				}
			}
		}

		if statusMermaid {
			config := introspection.DefaultDiagramConfig()
			config.SecondaryID = "glossa"
			config.SecondaryLabel = "Glossa"
			fmt.Fprintln(out(cmd), introspection.TreeDiagram(buildStatusTree(st), config))
			return nil
		}
		if ok, err := printStructured(out(cmd), statusFormat, st); ok {
			return err
		}

		if st.Session.SignedIn {
			fmt.Fprintf(out(cmd), "%s signed in as %s\n", okStyle.Render(app.Session.ComponentType()), st.Session.Email)
		} else {
			fmt.Fprintf(out(cmd), "%s signed out\n", mutedStyle.Render(app.Session.ComponentType()))
		}
		if st.Engine != nil {
			fmt.Fprintf(out(cmd), "%s %d notes, debounce %s, flush on close %t\n",
				okStyle.Render("engine"), st.Engine.Notes, st.Engine.Debounce, st.Engine.FlushOnClose)
		}
		fmt.Fprintln(out(cmd), mutedStyle.Render("data "+app.DataDir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusFormat, "format", "", "Output format: json or yaml")
	statusCmd.Flags().BoolVar(&statusMermaid, "mermaid", false, "Print a Mermaid diagram of the components")
}
