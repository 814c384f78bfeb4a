package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-learn/internal/app"
)

func newQuizCmd() *cobra.Command {
	quizCmd := &cobra.Command{
		Use:   "quiz",
		Short: "List and submit quizzes",
	}

	quizCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List quizzes with lock state and last score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				printf(cmd, "%3s  %-32s  %-10s  %5s  %s\n", "ID", "Title", "State", "Pass", "Last")
				printf(cmd, "%s\n", strings.Repeat("─", 66))
				for _, q := range a.Engine.QuizList(ctx) {
					last := "-"
					if q.LastScore != nil {
						last = fmt.Sprintf("%d%%", *q.LastScore)
					}
					printf(cmd, "%3d  %-32s  %-10s  %4d%%  %s\n", q.ID, q.Title, lockLabel(q.Unlocked), q.PassingScore, last)
				}
				return nil
			})
		},
	})

	submitCmd := &cobra.Command{
		Use:   "submit <quiz-id>",
		Short: "Score a set of answers",
		Long:  "Score answers given as --answer <question-id>=<option>. Unanswered questions earn nothing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quizID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid quiz id %q", args[0])
			}
			raw, _ := cmd.Flags().GetStringArray("answer")
			answers, err := parseAnswers(raw)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Engine.SubmitQuiz(ctx, quizID, answers)
				if err != nil {
					return err
				}
				verdict := "Not passed"
				if res.Passed {
					verdict = "Passed"
				}
				printf(cmd, "%s: %d/%d points (%d%%)\n", verdict, res.Points, res.TotalPoints, res.Percentage)
				if res.XPAwarded > 0 {
					printf(cmd, "+%d XP\n", res.XPAwarded)
				}
				return nil
			})
		},
	}
	submitCmd.Flags().StringArray("answer", nil, "Answer as <question-id>=<option> (repeatable)")

	quizCmd.AddCommand(submitCmd)
	return quizCmd
}

// parseAnswers turns "1=15" pairs into a question id to option map.
func parseAnswers(raw []string) (map[int]string, error) {
	answers := make(map[int]string, len(raw))
	for _, r := range raw {
		id, option, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("answer %q must look like <question-id>=<option>", r)
		}
		qid, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("answer %q: invalid question id", r)
		}
		answers[qid] = option
	}
	return answers, nil
}
