package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/config"
	"github.com/medtrack-app/entitlements/pkg/logger"
	"github.com/medtrack-app/entitlements/pkg/requestid"
)

// runtime is the state shared by subcommands once the root pre-run has
// loaded configuration.
type runtime struct {
	envFiles []string
	app      config.App
	log      *slog.Logger
}

func newRootCommand(version, commit string) *cobra.Command {
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:   "entitlementd",
		Short: "Feature entitlement service",
		Long: `entitlementd decides which features a user may use.

Access follows the user's subscription plan. Users without a plan may try
each feature once. Metered features are capped per calendar month.

Configuration comes from the environment and optional .env files.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.init()
		},
	}

	cmd.PersistentFlags().StringSliceVar(&rt.envFiles, "env-file", nil, "load environment from these files; later files win")

	cmd.AddCommand(
		newServeCommand(rt),
		newMigrateCommand(rt),
		newCatalogCommand(rt),
	)
	return cmd
}

func (rt *runtime) init() error {
	if err := config.LoadEnv(rt.envFiles...); err != nil {
		return err
	}
	if err := config.Load(&rt.app); err != nil {
		return err
	}
	if err := rt.app.Validate(); err != nil {
		return err
	}

	opts := []logger.Option{
		logger.WithEnvironment(rt.app.Env, rt.app.ServiceName),
		logger.WithUserIDFromContext(),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if level, ok := logger.ParseLevel(rt.app.LogLevel); ok {
		opts = append(opts, logger.WithLevel(level))
	}
	rt.log = logger.New(opts...)
	logger.SetAsDefault(rt.log)
	return nil
}

// catalog returns the catalog file named by CATALOG_PATH or the bundled one.
func (rt *runtime) catalog() (*catalog.Catalog, error) {
	if rt.app.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(rt.app.CatalogPath)
}
