// Package ai is the client side of the generative text service used by the
// translator, the quiz and the news briefing.
//
// The service itself sits behind the Generator port; pkg/adapters/anthropic
// provides the production implementation and tests use in-memory fakes.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaWithGrounding is returned for a request asking for both
	// structured output and grounded search.
	ErrSchemaWithGrounding = errors.New("structured output cannot be combined with grounded search")
	// ErrEmptyInput is returned when an operation has nothing to work on.
	ErrEmptyInput = errors.New("empty input")
	// ErrEmptyResponse is wrapped in a GenerationError when the service returns no text.
	ErrEmptyResponse = errors.New("empty response")
)

// Schema describes a JSON object the response must conform to.
type Schema struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// Request is a single generation call.
type Request struct {
	Prompt    string
	System    string
	Schema    *Schema
	Grounded  bool
	MaxTokens int64
}

// Validate checks the request before it is sent.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyInput
	}
	if r.Schema != nil && r.Grounded {
		return ErrSchemaWithGrounding
	}
	if r.Schema != nil && r.Schema.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	return nil
}

// Response is the result of a generation call. For schema requests Text holds
// the JSON object; for grounded requests Citations lists the sources used.
type Response struct {
	Text      string
	Citations []Citation
}

// Generator is the port to the generative text service.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Citation is a web source backing a grounded response.
type Citation struct {
	Title string `json:"title" yaml:"title"`
	URI   string `json:"uri" yaml:"uri"`
}

// DedupeCitations removes citations whose URI was already seen, keeping the
// first occurrence and the original order. Citations without a URI are dropped.
func DedupeCitations(in []Citation) []Citation {
	seen := make(map[string]bool, len(in))
	out := make([]Citation, 0, len(in))
	for _, c := range in {
		if c.URI == "" || seen[c.URI] {
			continue
		}
		seen[c.URI] = true
		out = append(out, c)
	}
	return out
}
