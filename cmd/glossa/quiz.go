package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/aretw0/glossa/pkg/ai"
	"github.com/aretw0/glossa/pkg/engine"
	"github.com/aretw0/glossa/pkg/quiz"
)

var (
	quizDifficulty string
	quizTag        string
	quizFormat     string
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Take a multiple-choice quiz built from your notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := ai.ParseDifficulty(quizDifficulty)
		if err != nil {
			return err
		}
		client, err := app.AI()
		if err != nil {
			return err
		}

		var questions []ai.Question
		err = withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
			notes := e.Notes()
			if quizTag != "" {
				if notes, err = e.Filter(quizTag); err != nil {
					return fmt.Errorf("invalid --tag pattern: %w", err)
				}
			}
			questions, err = client.GenerateQuiz(ctx, notes, d)
			return err
		})
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			fmt.Fprintln(out(cmd), mutedStyle.Render("Write a few notes first, the quiz is built from them."))
			return nil
		}
		if ok, err := printStructured(out(cmd), quizFormat, questions); ok {
			return err
		}

		s := quiz.New(questions)
		for {
			if err := runQuiz(cmd, s); err != nil {
				return err
			}
			again := false
			if err := huh.NewConfirm().Title("Try again?").Value(&again).Run(); err != nil || !again {
				return err
			}
			s.Reset()
		}
	},
}

func runQuiz(cmd *cobra.Command, s *quiz.Session) error {
	w := out(cmd)
	for i, q := range s.Questions {
		choice := -1
		opts := make([]huh.Option[int], len(q.Options))
		for j, o := range q.Options {
			opts[j] = huh.NewOption(o, j)
		}
		err := huh.NewSelect[int]().
			Title(fmt.Sprintf("%d/%d  %s", i+1, len(s.Questions), q.Prompt)).
			Options(opts...).
			Value(&choice).
			Run()
		if err != nil {
			return err
		}

		correct, err := s.Answer(i, choice)
		if err != nil {
			return err
		}
		if correct {
			fmt.Fprintln(w, okStyle.Render("✓ correct"))
		} else {
			fmt.Fprintf(w, "%s %s\n", errorStyle.Render("✗"), "answer: "+q.Options[q.Correct])
		}
		if q.Explanation != "" {
			fmt.Fprintln(w, mutedStyle.Render("  "+q.Explanation))
		}
	}
	s.Finish()

	summary := fmt.Sprintf("Score %d/%d (%d%%)", s.Score, len(s.Questions), s.Percent())
	var missed []string
	for i, q := range s.Questions {
		if s.Answers[i] != q.Correct {
			missed = append(missed, "• "+q.Prompt)
		}
	}
	if len(missed) > 0 {
		summary += "\n\nReview:\n" + strings.Join(missed, "\n")
	}
	fmt.Fprintln(w, boxStyle.Render(titleStyle.Render("Results")+"\n"+summary))
	return nil
}

func init() {
	rootCmd.AddCommand(quizCmd)
	quizCmd.Flags().StringVarP(&quizDifficulty, "difficulty", "d", string(ai.Medium), "easy, medium or hard")
	quizCmd.Flags().StringVarP(&quizTag, "tag", "t", "", "Only use notes with a tag matching this glob")
	quizCmd.Flags().StringVar(&quizFormat, "format", "", "Print the questions as json or yaml instead of asking them")
}
