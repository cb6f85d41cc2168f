package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/config"
	"github.com/medtrack-app/entitlements/pkg/entitlement"
	"github.com/medtrack-app/entitlements/pkg/entitlement/httpapi"
	"github.com/medtrack-app/entitlements/pkg/httpserver"
	"github.com/medtrack-app/entitlements/pkg/logger"
	"github.com/medtrack-app/entitlements/pkg/usage"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the entitlement HTTP API",
		Long: `Run the entitlement HTTP API until SIGINT or SIGTERM.

Backends are chosen with SUBSCRIPTION_STORE, USAGE_STORE and CHANGEFEED.
The memory backends keep everything in process, which suits local runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.serve(cmd.Context(), migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving (postgres store only)")
	return cmd
}

func (rt *runtime) serve(ctx context.Context, migrate bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := rt.log.With(logger.Component("entitlementd"))

	cat, err := rt.catalog()
	if err != nil {
		return err
	}

	if migrate && rt.app.SubscriptionStore == config.BackendPostgres {
		if err := rt.migrate(ctx); err != nil {
			return err
		}
	}

	b, err := openBackends(ctx, rt.app, rt.log)
	if err != nil {
		return err
	}
	defer b.close()

	sessions, err := rt.sessions(b, cat)
	if err != nil {
		return err
	}
	defer sessions.Close()

	router := chi.NewRouter()
	router.Get("/livez", httpserver.LivenessHandler())
	router.Get("/readyz", httpserver.ReadinessHandler(log, 2*time.Second, b.checks...))
	router.Mount("/", httpapi.New(sessions, httpapi.WithLogger(rt.log)).Routes())

	srv := httpserver.NewFromConfig(rt.app.HTTP, httpserver.WithLogger(rt.log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return srv.Run(gctx, router)
	})
	g.Go(func() error {
		expireStaleLoop(gctx, b.expirer, rt.app.ExpireStaleInterval, log)
		return nil
	})

	err = g.Wait()
	log.InfoContext(ctx, "entitlementd stopped", slog.Int("sessions", sessions.Len()))
	return err
}

func (rt *runtime) sessions(b *backends, cat *catalog.Catalog) (*entitlement.Sessions, error) {
	limiter, err := usage.NewLimiter(b.usage,
		usage.WithNearLimitPercent(rt.app.UsageNearLimitPercent),
		usage.WithLogger(rt.log),
	)
	if err != nil {
		return nil, err
	}

	opts := []entitlement.Option{
		entitlement.WithLimiter(limiter),
		entitlement.WithChangeFeed(b.feed),
		entitlement.WithTrialTickInterval(rt.app.TrialTickInterval),
		entitlement.WithRefreshTimeout(rt.app.RefreshTimeout),
		entitlement.WithLogger(rt.log),
	}
	if rt.app.TrialPlan != "" {
		plan, err := catalog.ParsePlanType(rt.app.TrialPlan)
		if err != nil {
			return nil, err
		}
		opts = append(opts, entitlement.WithTrialPlan(plan))
	}
	cfg := entitlement.SessionsConfig{
		MaxAge:   rt.app.SessionMaxAge,
		Capacity: rt.app.SessionCapacity,
	}
	return entitlement.NewSessions(b.repo, cat, cfg, opts...), nil
}

// expireStaleLoop flips lapsed active subscriptions to expired. Access checks
// already ignore them; this keeps the stored status truthful for reporting.
func expireStaleLoop(ctx context.Context, expirer staleExpirer, every time.Duration, log *slog.Logger) {
	if expirer == nil || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := expirer.ExpireStale(ctx)
			switch {
			case err != nil && !errors.Is(err, context.Canceled):
				log.WarnContext(ctx, "failed to expire stale subscriptions", logger.Error(err))
			case n > 0:
				log.InfoContext(ctx, "expired stale subscriptions", slog.Int64("count", n))
			}
		}
	}
}
