package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newsFormat string

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Show this week's compliance news with sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := app.AI()
		if err != nil {
			return err
		}
		b, err := client.Briefing(cmd.Context())
		if err != nil {
			return err
		}
		if ok, err := printStructured(out(cmd), newsFormat, b); ok {
			return err
		}

		for _, it := range b.Items {
			impact := impactStyles[it.Impact].Render(string(it.Impact))
			fmt.Fprintf(out(cmd), "%s %s\n", impact, titleStyle.Render(it.Headline))
			meta := it.Category
			if it.Date != "" {
				meta += " · " + it.Date
			}
			if meta != "" {
				fmt.Fprintln(out(cmd), mutedStyle.Render("  "+meta))
			}
			if it.Summary != "" {
				fmt.Fprintln(out(cmd), "  "+it.Summary)
			}
			fmt.Fprintln(out(cmd))
		}

		if len(b.Sources) > 0 {
			fmt.Fprintln(out(cmd), titleStyle.Render("Sources"))
			for i, s := range b.Sources {
				title := s.Title
				if title == "" {
					title = s.URI
				}
				fmt.Fprintf(out(cmd), "  [%d] %s\n      %s\n", i+1, title, mutedStyle.Render(s.URI))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newsCmd)
	newsCmd.Flags().StringVar(&newsFormat, "format", "", "Output format: json or yaml")
}
