// Package application wires the import service to its collaborators for
// the server and the CLI.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/prodsync/internal/config"
	"github.com/JonMunkholm/prodsync/internal/core"
	_ "github.com/JonMunkholm/prodsync/internal/core/fields" // Register product fields
	"github.com/JonMunkholm/prodsync/internal/logging"
	"github.com/JonMunkholm/prodsync/internal/store/postgres"
	"github.com/JonMunkholm/prodsync/internal/taxcache"
)

// App holds the open connections and the service built on them.
type App struct {
	Pool    *pgxpool.Pool
	Store   *postgres.Store
	Terms   *taxcache.Cache
	Service *core.Service
}

// New connects to PostgreSQL and, when configured, Redis. An unreachable
// Redis only disables the term cache.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	store := postgres.New(pool)

	terms := taxcache.New(store, nil, cfg.Cache.TermTTL, slog.Default())
	if cfg.Cache.Enabled() {
		client, err := taxcache.Connect(ctx, cfg.Cache.RedisURL)
		if err != nil {
			slog.Warn("term cache disabled", "error", err)
		} else {
			terms = taxcache.New(store, client, cfg.Cache.TermTTL, slog.Default())
		}
	}

	service := core.NewService(store, terms, store, core.ServiceConfig{
		MaxConcurrent:   cfg.Import.MaxConcurrent,
		MaxWait:         cfg.Import.MaxWaitTime,
		Timeout:         cfg.Import.Timeout,
		ResultRetention: cfg.Import.ResultRetention,
		ReportPrefix:    cfg.Import.ReportPrefix,
	}, core.WithContextLogger(logging.FromContext))

	return &App{Pool: pool, Store: store, Terms: terms, Service: service}, nil
}

// Migrate applies the catalog schema.
func (a *App) Migrate(ctx context.Context) error {
	if err := postgres.Migrate(ctx, a.Pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases Redis and the pool.
func (a *App) Close() {
	if err := a.Terms.Close(); err != nil {
		slog.Warn("closing term cache", "error", err)
	}
	a.Pool.Close()
}
