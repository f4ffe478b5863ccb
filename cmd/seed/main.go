// Command seed writes the built-in space catalog, replacing existing definitions.
package main

import (
	"context"
	"log/slog"
	"os"

	_ "time/tzdata"

	"github.com/kirinyoku/spacebook/internal/app"
	"github.com/kirinyoku/spacebook/internal/config"
	"github.com/kirinyoku/spacebook/internal/postgres"
	gormrepo "github.com/kirinyoku/spacebook/internal/repository/gorm"
	postgresrepo "github.com/kirinyoku/spacebook/internal/repository/postgres"
	"github.com/kirinyoku/spacebook/internal/service/catalog"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var store app.Storage
	switch cfg.Storage.Driver {
	case config.DriverGorm:
		st, err := gormrepo.Open(gormrepo.Config{DSN: cfg.Storage.GormDSN})
		if err != nil {
			logger.Error("failed to open storage", "error", err)
			os.Exit(1)
		}
		defer st.Close()
		store = st
	default:
		pool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN()})
		if err != nil {
			logger.Error("failed to open storage", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = postgresrepo.NewStore(pool)
	}

	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to migrate", "error", err)
		os.Exit(1)
	}

	cat := catalog.New(store.Repos().Spaces, nil, catalog.Config{})
	if err := app.SeedDefaults(ctx, cat, true); err != nil {
		logger.Error("failed to seed", "error", err)
		os.Exit(1)
	}
}
