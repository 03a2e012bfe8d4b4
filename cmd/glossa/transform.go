package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/glossa/pkg/ai"
)

var transformMode string

var transformCmd = &cobra.Command{
	Use:   "transform [text]",
	Short: "Fix, simplify or expand a piece of text",
	Long: `Rewrite text with the AI tutor. The text is read from the arguments or,
when none are given, from stdin. If the service fails the text is printed
unchanged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ins, err := ai.ParseInstruction(transformMode)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		if len(args) == 0 {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			text = string(b)
		}

		client, err := app.AI()
		if err != nil {
			return err
		}
		result, err := client.Transform(cmd.Context(), text, ins)
		if err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.Flags().StringVarP(&transformMode, "mode", "m", string(ai.GrammarFix), "One of grammar-fix, simplify, expand")
}
