package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-learn/internal/app"
	"github.com/p-n-ai/pai-learn/internal/platform/config"
	"github.com/p-n-ai/pai-learn/internal/platform/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "learn",
		Short:         "Track lessons, quizzes and streaks",
		Long:          "learn records lesson progress, scores quizzes and reports streaks, milestones and achievements.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("store", "", "Store backend: memory, sqlite, redis or postgres (overrides LEARN_STORE_BACKEND)")
	root.PersistentFlags().String("db", "", "Path to SQLite database file (overrides LEARN_STORE_SQLITE_PATH)")
	root.PersistentFlags().String("catalog", "", "Directory of topic and quiz YAML files (overrides LEARN_CATALOG_PATH)")
	root.PersistentFlags().Bool("offline", false, "Do not contact the profile service")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newCheckInCmd(),
		newStatsCmd(),
		newTopicCmd(),
		newLessonCmd(),
		newQuizCmd(),
		newCertificateCmd(),
		newExportCmd(),
		newOnboardCmd(),
		newResetCmd(),
		newLoginCmd(),
		newSignUpCmd(),
		newLogoutCmd(),
		newWhoAmICmd(),
	)
	return root
}

// loadConfig reads LEARN_ variables and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Backend = v
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Store.SQLitePath = p
	}
	if p, _ := cmd.Flags().GetString("catalog"); p != "" {
		cfg.Catalog.Path = p
	}
	if off, _ := cmd.Flags().GetBool("offline"); off {
		cfg.Profile.Enabled = false
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Log.Level = "debug"
	} else {
		cfg.Log.Level = "warn"
	}
	cfg.Log.Format = "text"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp opens the engine for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	slog.SetDefault(logging.New(cfg.Log, cmd.ErrOrStderr()))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			slog.Warn("closing store", "error", cerr)
		}
	}()

	return fn(ctx, a)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
