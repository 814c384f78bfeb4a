package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-learn/internal/app"
	"github.com/p-n-ai/pai-learn/internal/report"
)

func newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write a progress report workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				if err := report.WriteXLSX(f, a.Engine.Report(ctx)); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				printf(cmd, "Report written to %s\n", out)
				return nil
			})
		},
	}
	exportCmd.Flags().StringP("out", "o", "progress.xlsx", "Output file")
	return exportCmd
}

func newOnboardCmd() *cobra.Command {
	onboardCmd := &cobra.Command{
		Use:   "onboard",
		Short: "Mark onboarding as seen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			undo, _ := cmd.Flags().GetBool("reset")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if undo {
					if err := a.Engine.Settings().ResetOnboarding(ctx); err != nil {
						return err
					}
					printf(cmd, "Onboarding will show again.\n")
					return nil
				}
				if err := a.Engine.Settings().CompleteOnboarding(ctx); err != nil {
					return err
				}
				printf(cmd, "Onboarding complete.\n")
				return nil
			})
		},
	}
	onboardCmd.Flags().Bool("reset", false, "Show onboarding again")
	return onboardCmd
}

func newResetCmd() *cobra.Command {
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all learner progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("reset erases all progress; pass --yes to confirm")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Engine.Reset(ctx); err != nil {
					return err
				}
				printf(cmd, "Progress reset.\n")
				return nil
			})
		},
	}
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
	return resetCmd
}
