package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/medtrack-app/entitlements/pkg/config"
	"github.com/medtrack-app/entitlements/pkg/pg"
	"github.com/medtrack-app/entitlements/pkg/subscription"
)

func newMigrateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply the embedded goose migrations to the database named by PG_CONN_URL.
Already applied migrations are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.migrate(cmd.Context())
		},
	}
}

func (rt *runtime) migrate(ctx context.Context) error {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg, rt.log, subscription.Migrations); err != nil {
		return err
	}
	rt.log.InfoContext(ctx, "migrations applied", slog.String("table", cfg.MigrationsTable))
	return nil
}
