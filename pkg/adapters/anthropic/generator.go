// Package anthropic implements ai.Generator with the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aretw0/glossa/pkg/ai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "claude-sonnet-4-5"

// ErrNoAPIKey is returned by New without an API key.
var ErrNoAPIKey = errors.New("anthropic API key is not set")

// Config configures the generator.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint (proxies, tests).
	BaseURL string
	// MaxSearches bounds web searches per grounded request.
	MaxSearches int64
	Logger      *slog.Logger
}

// Generator sends ai.Requests as Messages API calls.
type Generator struct {
	client      sdk.Client
	model       sdk.Model
	maxSearches int64
	logger      *slog.Logger
}

// New creates a Generator.
func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if cfg.MaxSearches <= 0 {
		cfg.MaxSearches = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		client:      sdk.NewClient(opts...),
		model:       sdk.Model(model),
		maxSearches: cfg.MaxSearches,
		logger:      logger.With("component", "anthropic"),
	}, nil
}

// Generate implements ai.Generator.
func (g *Generator) Generate(ctx context.Context, req ai.Request) (ai.Response, error) {
	if err := req.Validate(); err != nil {
		return ai.Response{}, err
	}

	params := g.params(req)
	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return ai.Response{}, fmt.Errorf("messages request: %w", err)
	}
	g.logger.Debug("message received",
		"model", msg.Model,
		"stop_reason", msg.StopReason,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens)

	return toResponse(msg, req.Schema), nil
}

func (g *Generator) params(req ai.Request) sdk.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	params := sdk.MessageNewParams{
		Model:     g.model,
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	switch {
	case req.Schema != nil:
		// Structured output: a single tool whose input is the schema, forced.
		tool := sdk.ToolParam{
			Name: req.Schema.Name,
			InputSchema: sdk.ToolInputSchemaParam{
				Properties: req.Schema.Properties,
				Required:   req.Schema.Required,
			},
		}
		if req.Schema.Description != "" {
			tool.Description = sdk.String(req.Schema.Description)
		}
		params.Tools = []sdk.ToolUnionParam{{OfTool: &tool}}
		params.ToolChoice = sdk.ToolChoiceUnionParam{
			OfTool: &sdk.ToolChoiceToolParam{Name: req.Schema.Name},
		}
	case req.Grounded:
		params.Tools = []sdk.ToolUnionParam{{
			OfWebSearchTool20250305: &sdk.WebSearchTool20250305Param{
				MaxUses: sdk.Int(g.maxSearches),
			},
		}}
	}
	return params
}

// toResponse flattens the content blocks. For schema requests the tool input
// is the answer; otherwise the text blocks are joined and their web citations
// collected in order.
func toResponse(msg *sdk.Message, schema *ai.Schema) ai.Response {
	var resp ai.Response
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "tool_use":
			if schema != nil && block.Name == schema.Name {
				return ai.Response{Text: string(block.Input)}
			}
		case "text":
			text.WriteString(block.Text)
			for _, c := range block.Citations {
				if c.URL == "" {
					continue
				}
				resp.Citations = append(resp.Citations, ai.Citation{Title: c.Title, URI: c.URL})
			}
		}
	}
	resp.Text = text.String()
	return resp
}

var _ ai.Generator = (*Generator)(nil)
