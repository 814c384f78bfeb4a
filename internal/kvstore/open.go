package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-learn/internal/platform/cache"
	"github.com/p-n-ai/pai-learn/internal/platform/config"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/platform/sqlite"
)

// Backend is an opened store plus the connections it owns.
type Backend struct {
	Store Store
	// DB is set for the postgres backend so the event log can share the pool.
	DB *database.DB

	closers []func() error
}

// Close releases every connection the backend opened.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open builds the backend selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{}

	switch cfg.Store.Backend {
	case config.BackendMemory:
		b.Store = NewMemoryStore()

	case config.BackendSQLite:
		path := cfg.Store.SQLitePath
		if path == "" {
			p, err := sqlite.DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		} else if err := sqlite.EnsureDir(path); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		b.Store, err = NewSQLiteStore(db)
		if err != nil {
			b.Close()
			return nil, err
		}

	case config.BackendRedis:
		c, err := cache.New(ctx, cfg.Cache.URL, cfg.Cache.KeyPrefix)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, c.Close)
		b.Store, err = NewRedisStore(c)
		if err != nil {
			b.Close()
			return nil, err
		}

	case config.BackendPostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() error { db.Close(); return nil })
		if err := db.Migrate(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.DB = db
		b.Store, err = NewPostgresStore(db.Pool)
		if err != nil {
			b.Close()
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	slog.Info("key-value store opened", "backend", cfg.Store.Backend)
	return b, nil
}
