// Package quiz holds the state of a quiz run. Sessions are ephemeral and
// never persisted.
package quiz

import (
	"errors"
	"fmt"

	"github.com/aretw0/glossa/pkg/ai"
)

// Unanswered marks a question without a selected option.
const Unanswered = -1

var (
	// ErrAlreadyAnswered is returned when a question is answered twice.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrFinished is returned when answering after the results are shown.
	ErrFinished = errors.New("quiz is finished")
)

// Phase is the stage of a quiz session.
type Phase int

const (
	Active Phase = iota
	Results
)

func (p Phase) String() string {
	if p == Results {
		return "results"
	}
	return "active"
}

// Session is a single quiz run. It is not safe for concurrent use.
type Session struct {
	Questions []ai.Question
	Answers   []int
	Score     int
	Phase     Phase
}

// New starts a session over questions.
func New(questions []ai.Question) *Session {
	s := &Session{Questions: questions}
	s.Reset()
	return s
}

// Answer records choice for question i. Only the first answer counts.
// It reports whether the choice was correct.
func (s *Session) Answer(i, choice int) (bool, error) {
	if s.Phase == Results {
		return false, ErrFinished
	}
	if i < 0 || i >= len(s.Questions) {
		return false, fmt.Errorf("question %d out of range", i)
	}
	if choice < 0 || choice >= len(s.Questions[i].Options) {
		return false, fmt.Errorf("option %d out of range", choice)
	}
	if s.Answers[i] != Unanswered {
		return false, ErrAlreadyAnswered
	}

	s.Answers[i] = choice
	correct := choice == s.Questions[i].Correct
	if correct {
		s.Score++
	}
	return correct, nil
}

// Complete reports whether every question has an answer.
func (s *Session) Complete() bool {
	for _, a := range s.Answers {
		if a == Unanswered {
			return false
		}
	}
	return true
}

// Finish moves the session to the results phase.
func (s *Session) Finish() {
	s.Phase = Results
}

// Reset clears all answers and the score and returns to the active phase.
func (s *Session) Reset() {
	s.Answers = make([]int, len(s.Questions))
	for i := range s.Answers {
		s.Answers[i] = Unanswered
	}
	s.Score = 0
	s.Phase = Active
}

// Percent is the score as a percentage of the question count.
func (s *Session) Percent() int {
	if len(s.Questions) == 0 {
		return 0
	}
	return s.Score * 100 / len(s.Questions)
}
