package main

import (
	"encoding/json"
	"io"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/glossa/pkg/ai"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	favStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	impactStyles = map[ai.Impact]lipgloss.Style{
		ai.ImpactHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		ai.ImpactMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		ai.ImpactLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

// printStructured writes v in format ("json" or "yaml"). It reports false for
// any other format so the caller prints its text view.
func printStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "json":
		return true, printJSON(w, v)
	case "yaml":
		return true, printYAML(w, v)
	}
	return false, nil
}
