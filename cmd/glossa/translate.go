package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	translateSpeak  bool
	translateFormat string
)

var translateCmd = &cobra.Command{
	Use:     "translate [term]",
	Aliases: []string{"t"},
	Short:   "Translate and explain a compliance term",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := app.AI()
		if err != nil {
			return err
		}
		t, err := client.Lookup(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		if translateSpeak {
			sp := app.Speaker(cmd.Context())
			sp.Speak(t.Term)
			if w, ok := sp.(interface{ Wait() }); ok {
				defer w.Wait()
			}
		}

		if ok, err := printStructured(out(cmd), translateFormat, t); ok {
			return err
		}
		fmt.Fprintf(out(cmd), "%s  %s\n", titleStyle.Render(t.Term), tagStyle.Render(t.Translation))
		if t.Definition != "" {
			fmt.Fprintln(out(cmd), t.Definition)
		}
		for _, ex := range t.Examples {
			fmt.Fprintln(out(cmd), mutedStyle.Render("  • "+ex))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().BoolVarP(&translateSpeak, "speak", "s", false, "Read the term aloud")
	translateCmd.Flags().StringVar(&translateFormat, "format", "", "Output format: json or yaml")
}
