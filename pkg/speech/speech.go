// Package speech reads text aloud. Playback is fire-and-forget: Speak never
// blocks and never reports an error to the caller.
package speech

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/aretw0/lifecycle"
)

// Language is the voice language of every utterance.
const Language = "en-US"

// DefaultCommand is the text-to-speech command line. {lang} and {text} are
// substituted per utterance.
const DefaultCommand = "espeak-ng -v {lang} {text}"

// Speaker reads text aloud.
type Speaker interface {
	Speak(text string)
}

// Nop discards every utterance.
type Nop struct{}

// Speak implements Speaker.
func (Nop) Speak(string) {}

// CommandSpeaker runs an external TTS program per utterance.
// A new utterance interrupts the one still playing.
type CommandSpeaker struct {
	ctx    context.Context
	args   []string
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCommandSpeaker creates a speaker for command (DefaultCommand if empty).
// Utterances stop when ctx is cancelled.
func NewCommandSpeaker(ctx context.Context, command string, logger *slog.Logger) *CommandSpeaker {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CommandSpeaker{
		ctx:    ctx,
		args:   strings.Fields(command),
		logger: logger.With("component", "speech"),
	}
}

// Args returns the argument vector used to speak text.
func (s *CommandSpeaker) Args(text string) []string {
	out := make([]string, len(s.args))
	for i, a := range s.args {
		a = strings.ReplaceAll(a, "{lang}", Language)
		out[i] = strings.ReplaceAll(a, "{text}", text)
	}
	return out
}

// Speak implements Speaker.
func (s *CommandSpeaker) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" || len(s.args) == 0 {
		return
	}
	args := s.Args(text)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer s.wg.Done()
		defer cancel()
		return exec.CommandContext(ctx, args[0], args[1:]...).Run()
	}, lifecycle.WithErrorHandler(func(err error) {
		if ctx.Err() == nil {
			s.logger.Warn("speech command failed", "command", args[0], "error", err)
		}
	}))
}

// Wait blocks until every started utterance has finished.
func (s *CommandSpeaker) Wait() {
	s.wg.Wait()
}

var _ Speaker = (*CommandSpeaker)(nil)
var _ Speaker = Nop{}
