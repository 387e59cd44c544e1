package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ayush/blog/internal/config"
	"github.com/ayush/blog/internal/store"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if cfg.PostgresDSN == "" {
		return oops.Code("CONFIG_INVALID").Errorf("POSTGRES_DSN is required")
	}

	ctx := context.Background()

	cmd.Println("Connecting to database...")
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer pool.Close()

	cmd.Println("Running migrations...")
	if err := store.Migrate(ctx, pool); err != nil {
		return err
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
