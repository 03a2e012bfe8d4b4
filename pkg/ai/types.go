package ai

import (
	"fmt"
	"strings"
)

// Translation is the glossary entry for a compliance term.
type Translation struct {
	Term        string   `json:"term" yaml:"term" validate:"required"`
	Translation string   `json:"translation" yaml:"translation" validate:"required"`
	Definition  string   `json:"definition" yaml:"definition"`
	Examples    []string `json:"examples" yaml:"examples"`
}

// Instruction selects a free-text transform.
type Instruction string

const (
	GrammarFix Instruction = "grammar-fix"
	Simplify   Instruction = "simplify"
	Expand     Instruction = "expand"
)

// Instructions lists the supported transforms.
var Instructions = []Instruction{GrammarFix, Simplify, Expand}

// ParseInstruction maps a name to an Instruction.
func ParseInstruction(s string) (Instruction, error) {
	for _, i := range Instructions {
		if strings.EqualFold(s, string(i)) {
			return i, nil
		}
	}
	return "", fmt.Errorf("unknown instruction %q (want one of grammar-fix, simplify, expand)", s)
}

// Difficulty is the level of a generated quiz.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// ParseDifficulty maps a case-insensitive name to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range []Difficulty{Easy, Medium, Hard} {
		if strings.EqualFold(s, string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", s)
}

// Question is a multiple-choice quiz question.
type Question struct {
	ID          string    `json:"id" yaml:"id"`
	Prompt      string    `json:"question" yaml:"question"`
	Options     [4]string `json:"options" yaml:"options"`
	Correct     int       `json:"correct_index" yaml:"correct_index"`
	Explanation string    `json:"explanation" yaml:"explanation"`
}

// Impact is the relevance level of a news item.
type Impact string

const (
	ImpactHigh   Impact = "High"
	ImpactMedium Impact = "Medium"
	ImpactLow    Impact = "Low"
)

// ParseImpact normalises an impact label. Unknown labels are Low.
func ParseImpact(s string) Impact {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ImpactHigh
	case "medium":
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// NewsItem is a single entry of the news briefing.
type NewsItem struct {
	Headline string `json:"headline" yaml:"headline"`
	Summary  string `json:"summary" yaml:"summary"`
	Category string `json:"category" yaml:"category"`
	Impact   Impact `json:"impact" yaml:"impact"`
	Date     string `json:"date" yaml:"date"`
}

// Briefing is the grounded news feed with its deduplicated sources.
type Briefing struct {
	Items   []NewsItem `json:"items" yaml:"items"`
	Sources []Citation `json:"sources" yaml:"sources"`
}
