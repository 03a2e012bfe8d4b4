package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aretw0/glossa/pkg/core"
)

const (
	// DefaultCorpusLimit caps the characters of note text sent for a quiz.
	DefaultCorpusLimit = 12000
	// DefaultQuizSize is the number of questions per quiz.
	DefaultQuizSize = 5
)

type options struct {
	logger      *slog.Logger
	corpusLimit int
	quizSize    int
	maxTokens   int64
	recorder    Recorder
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger of the client.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCorpusLimit sets the character budget of the quiz corpus.
func WithCorpusLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.corpusLimit = n
		}
	}
}

// WithQuizSize sets the number of questions per quiz.
func WithQuizSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.quizSize = n
		}
	}
}

// WithMaxTokens bounds the length of every response.
func WithMaxTokens(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithRecorder registers a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// Recorder receives one observation per generation call.
type Recorder interface {
	ObserveGeneration(op string, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveGeneration(string, time.Duration, error) {}

// Client runs the study-aid operations against a Generator.
// It keeps no state between calls and is safe for concurrent use.
type Client struct {
	gen      Generator
	opts     *options
	logger   *slog.Logger
	validate *validator.Validate
}

// NewClient creates a Client on top of gen.
func NewClient(gen Generator, opts ...Option) *Client {
	o := &options{
		corpusLimit: DefaultCorpusLimit,
		quizSize:    DefaultQuizSize,
		maxTokens:   2048,
		recorder:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		gen:      gen,
		opts:     o,
		logger:   logger.With("component", "ai"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Lookup translates and explains a compliance term.
func (c *Client) Lookup(ctx context.Context, term string) (Translation, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Translation{}, ErrEmptyInput
	}

	resp, err := c.generate(ctx, "lookup", Request{
		Prompt: fmt.Sprintf(lookupPrompt, term),
		System: systemTutor,
		Schema: translationSchema,
	})
	if err != nil {
		return Translation{}, err
	}

	var t Translation
	if err := c.decode(resp.Text, &t); err != nil {
		return Translation{}, &core.GenerationError{Op: "lookup", Err: err}
	}
	if err := c.validate.Struct(t); err != nil {
		return Translation{}, &core.GenerationError{Op: "lookup", Err: fmt.Errorf("incomplete translation: %w", err)}
	}
	if t.Examples == nil {
		t.Examples = []string{}
	}
	return t, nil
}

// Transform rewrites text following ins. When the service fails or returns
// nothing the original text is returned unchanged with a nil error.
func (c *Client) Transform(ctx context.Context, text string, ins Instruction) (string, error) {
	tmpl, ok := transformPrompts[ins]
	if !ok {
		return text, fmt.Errorf("unknown instruction %q", ins)
	}
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	resp, err := c.generate(ctx, "transform", Request{
		Prompt: fmt.Sprintf(tmpl, text),
		System: systemTutor,
	})
	if err != nil {
		c.logger.Warn("transform failed, keeping original text", "instruction", ins, "error", err)
		return text, nil
	}
	out := strings.TrimSpace(resp.Text)
	if out == "" {
		return text, nil
	}
	return out, nil
}

// rawQuestion is a question as the model returns it.
type rawQuestion struct {
	Question    string   `json:"question" validate:"required"`
	Options     []string `json:"options" validate:"len=4,dive,required"`
	Correct     int      `json:"correct_index" validate:"min=0,max=3"`
	Explanation string   `json:"explanation"`
}

// GenerateQuiz builds a quiz from the notes. With no note text it returns an
// empty list without calling the service. Malformed questions are dropped and
// every kept question gets a fresh local ID.
func (c *Client) GenerateQuiz(ctx context.Context, notes []core.Note, d Difficulty) ([]Question, error) {
	if _, err := ParseDifficulty(string(d)); err != nil {
		return nil, err
	}
	corpus := BuildCorpus(notes, c.opts.corpusLimit)
	if strings.TrimSpace(corpus) == "" {
		return []Question{}, nil
	}

	resp, err := c.generate(ctx, "quiz", Request{
		Prompt: fmt.Sprintf(quizPrompt, c.opts.quizSize, d, corpus),
		System: systemTutor,
		Schema: quizSchema,
	})
	if err != nil {
		return nil, err
	}

	raw, err := decodeList[rawQuestion](resp.Text, "questions")
	if err != nil {
		return nil, &core.GenerationError{Op: "quiz", Err: err}
	}

	questions := make([]Question, 0, c.opts.quizSize)
	for i, r := range raw {
		if err := c.validate.Struct(r); err != nil {
			c.logger.Debug("dropping malformed question", "index", i, "error", err)
			continue
		}
		q := Question{
			ID:          uuid.NewString(),
			Prompt:      r.Question,
			Correct:     r.Correct,
			Explanation: r.Explanation,
		}
		copy(q.Options[:], r.Options)
		questions = append(questions, q)
		if len(questions) == c.opts.quizSize {
			break
		}
	}
	if len(questions) == 0 {
		return nil, &core.GenerationError{Op: "quiz", Err: errors.New("no usable questions")}
	}
	return questions, nil
}

// Briefing fetches the grounded compliance news feed.
func (c *Client) Briefing(ctx context.Context) (Briefing, error) {
	resp, err := c.generate(ctx, "briefing", Request{
		Prompt:   briefingPrompt,
		Grounded: true,
	})
	if err != nil {
		return Briefing{}, err
	}

	items, err := decodeList[NewsItem](resp.Text, "items")
	if err != nil {
		return Briefing{}, &core.GenerationError{Op: "briefing", Err: err}
	}

	kept := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Headline) == "" {
			continue
		}
		it.Impact = ParseImpact(string(it.Impact))
		kept = append(kept, it)
	}
	if len(kept) == 0 {
		return Briefing{}, &core.GenerationError{Op: "briefing", Err: errors.New("no news items")}
	}

	return Briefing{Items: kept, Sources: DedupeCitations(resp.Citations)}, nil
}

// generate validates, sends and measures a request. Every failure, including
// an empty response, is returned as a *core.GenerationError.
func (c *Client) generate(ctx context.Context, op string, req Request) (Response, error) {
	if req.MaxTokens == 0 {
		req.MaxTokens = c.opts.maxTokens
	}
	if err := req.Validate(); err != nil {
		return Response{}, &core.GenerationError{Op: op, Err: err}
	}

	start := time.Now()
	resp, err := c.gen.Generate(ctx, req)
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = ErrEmptyResponse
	}
	c.opts.recorder.ObserveGeneration(op, time.Since(start), err)
	if err != nil {
		c.logger.Debug("generation failed", "op", op, "error", err)
		return Response{}, &core.GenerationError{Op: op, Err: err}
	}
	c.logger.Debug("generation done", "op", op, "elapsed", time.Since(start), "citations", len(resp.Citations))
	return resp, nil
}

func (c *Client) decode(text string, v any) error {
	body, err := extractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	return nil
}
