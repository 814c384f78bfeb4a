// Package app wires configuration into a ready learning engine.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/events"
	"github.com/p-n-ai/pai-learn/internal/kvstore"
	"github.com/p-n-ai/pai-learn/internal/learning"
	"github.com/p-n-ai/pai-learn/internal/platform/config"
	"github.com/p-n-ai/pai-learn/internal/profile"
	"github.com/p-n-ai/pai-learn/internal/settings"
)

// App owns the engine and the connections behind it.
type App struct {
	Engine  *learning.Engine
	backend *kvstore.Backend
}

// New opens the configured store and catalog and builds the engine.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	backend, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		backend.Close()
		return nil, err
	}

	var logger events.Logger = events.NopLogger{}
	if backend.DB != nil {
		logger = events.NewPostgresLogger(backend.DB.Pool)
	}

	var account profile.Account
	if cfg.Profile.Enabled {
		account = profile.NewClient(
			profile.WithBaseURL(cfg.Profile.BaseURL),
			profile.WithTimeout(cfg.ProfileTimeout()),
		)
	}
	session := profile.NewSession(backend.Store, account)
	if err := session.Restore(ctx); err != nil {
		// Offline use continues without a profile.
		slog.Warn("session restore failed", "error", err)
	}

	prefs := settings.New(backend.Store)
	prefs.Load(ctx)

	engine, err := learning.NewEngine(learning.EngineConfig{
		Catalog:       cat,
		Store:         backend.Store,
		Events:        logger,
		Session:       session,
		Settings:      prefs,
		QuizTimeLimit: cfg.QuizTimeLimit(),
		LessonMinutes: cfg.Quiz.LessonMinutes,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	slog.Info("learning engine ready",
		"topics", len(cat.Topics()),
		"quizzes", len(cat.Quizzes()),
		"profile", cfg.Profile.Enabled,
		"signed_in", session.Authenticated(),
	)
	return &App{Engine: engine, backend: backend}, nil
}

// Close releases the store connections.
func (a *App) Close() error {
	if a == nil || a.backend == nil {
		return nil
	}
	return a.backend.Close()
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	cat, err := catalog.LoadDir(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog from %s: %w", path, err)
	}
	return cat, nil
}
