package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-learn/internal/app"
	"github.com/p-n-ai/pai-learn/internal/gating"
)

func newTopicCmd() *cobra.Command {
	topicCmd := &cobra.Command{
		Use:   "topic",
		Short: "Browse topics",
	}

	topicCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				printf(cmd, "%-16s  %-12s  %-28s  %s\n", "Key", "Subject", "Title", "Done")
				for _, t := range a.Engine.Catalog().Topics() {
					done := a.Engine.Gating().CompletedCount(ctx, t.Key())
					printf(cmd, "%-16s  %-12s  %-28s  %d/%d\n", t.Key(), t.Subject, t.Title, done, len(t.Lessons))
				}
				return nil
			})
		},
	})

	topicCmd.AddCommand(&cobra.Command{
		Use:   "show <subject> <topic-id>",
		Short: "Show lessons of a topic and which are open",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				v, err := a.Engine.Topic(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				printf(cmd, "%s (%s)\n", v.Title, v.Subject)
				for _, l := range v.Lessons {
					state := "locked"
					switch {
					case l.Completed:
						state = "done"
					case l.Accessible:
						state = "open"
					}
					printf(cmd, "  %2d. %-40s %s\n", l.ID, l.Title, state)
				}
				if v.Quiz != nil {
					printf(cmd, "Quiz %d: %s %s\n", v.Quiz.ID, v.Quiz.Title, lockLabel(v.Quiz.Unlocked))
				}
				printf(cmd, "Resume at lesson %d\n", v.ResumeLesson)
				return nil
			})
		},
	})
	return topicCmd
}

func newLessonCmd() *cobra.Command {
	lessonCmd := &cobra.Command{
		Use:   "lesson",
		Short: "Read and complete lessons",
	}

	readCmd := &cobra.Command{
		Use:   "read <subject> <topic-id> <lesson-id>",
		Short: "Print a lesson if it is open",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lessonID, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid lesson id %q", args[2])
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				l, err := a.Engine.Lesson(ctx, args[0], args[1], lessonID)
				if err != nil {
					return err
				}
				printf(cmd, "%s\n\n%s\n", l.Title, l.Content)
				return nil
			})
		},
	}

	completeCmd := &cobra.Command{
		Use:   "complete <subject> <topic-id> <lesson-id>",
		Short: "Mark a lesson as completed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lessonID, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid lesson id %q", args[2])
			}
			minutes, _ := cmd.Flags().GetFloat64("minutes")

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Engine.CompleteLesson(ctx, args[0], args[1], lessonID, minutes)
				if err != nil {
					return err
				}
				if !out.FirstCompletion {
					printf(cmd, "Lesson %d was already completed.\n", lessonID)
				} else {
					printf(cmd, "Completed lesson %d (%d done in %s).\n", lessonID, len(out.Completed), out.TopicKey)
				}
				printUnlocks(cmd, out.NewMilestones, out.NewAchievements)
				if out.QuizID != 0 && out.QuizUnlocked {
					printf(cmd, "Quiz %d is unlocked.\n", out.QuizID)
				}
				switch out.Next.Kind {
				case gating.TargetQuiz:
					printf(cmd, "Next: quiz\n")
				case gating.TargetLesson:
					printf(cmd, "Next: lesson %d\n", out.Next.LessonID)
				}
				return nil
			})
		},
	}
	completeCmd.Flags().Float64("minutes", 0, "Minutes spent on the lesson (default from LEARN_LESSON_MINUTES)")

	lessonCmd.AddCommand(readCmd, completeCmd)
	return lessonCmd
}

func lockLabel(unlocked bool) string {
	if unlocked {
		return "(unlocked)"
	}
	return "(locked)"
}
