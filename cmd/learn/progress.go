package main

import (
	"context"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-learn/internal/app"
	"github.com/p-n-ai/pai-learn/internal/learning"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

func newCheckInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkin",
		Short: "Record today's visit and update the streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := a.Engine.CheckIn(ctx)
				printf(cmd, "Streak: %d day(s) (longest %d)\n", s.Streak, s.LongestStreak)
				return nil
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show learning statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				printDashboard(cmd, a.Engine.Dashboard(ctx))
				return nil
			})
		},
	}
}

func printDashboard(cmd *cobra.Command, d learning.Dashboard) {
	if d.User != "" {
		printf(cmd, "Learner:           %s\n", d.User)
	}
	s := d.Stats
	printf(cmd, "Streak:            %d (longest %d)\n", s.Streak, s.LongestStreak)
	printf(cmd, "Total XP:          %d\n", s.TotalXP)
	printf(cmd, "Lessons completed: %d\n", s.LessonsCompleted)
	printf(cmd, "Hours learned:     %.1f\n", s.HoursLearned)
	printf(cmd, "Certificates:      %d\n", s.CertificatesEarned)
	printf(cmd, "Quizzes:           %d attempted, %d passed (%d%%)\n", d.Quiz.Attempted, d.Quiz.Passed, d.Quiz.PassRate)

	printf(cmd, "\nMilestones\n%s\n", strings.Repeat("─", 30))
	for _, m := range d.Milestones {
		printf(cmd, "  %s %s\n", mark(m.Unlocked), m.Name)
	}
	printf(cmd, "\nAchievements\n%s\n", strings.Repeat("─", 30))
	for _, m := range d.Achievements {
		printf(cmd, "  %s %s\n", mark(m.Unlocked), m.Name)
	}
}

func newCertificateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "certificate",
		Short: "Record an earned certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				before := progress.AchievementsFor(a.Engine.Tracker().Load(ctx))
				s := a.Engine.EarnCertificate(ctx)
				printf(cmd, "Certificates earned: %d\n", s.CertificatesEarned)
				printUnlocks(cmd, nil, added(before, progress.AchievementsFor(s)))
				return nil
			})
		},
	}
}

func printUnlocks(cmd *cobra.Command, milestones []progress.Milestone, achievements []progress.Achievement) {
	for _, m := range milestones {
		printf(cmd, "Milestone unlocked: %s\n", m.DisplayName())
	}
	for _, a := range achievements {
		printf(cmd, "Achievement unlocked: %s\n", a.DisplayName())
	}
}

// added returns the entries of after missing from before.
func added[T comparable](before, after []T) []T {
	var out []T
	for _, v := range after {
		if !slices.Contains(before, v) {
			out = append(out, v)
		}
	}
	return out
}

func mark(ok bool) string {
	if ok {
		return "[x]"
	}
	return "[ ]"
}
