package main

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/medtrack-app/entitlements/pkg/changefeed"
	"github.com/medtrack-app/entitlements/pkg/config"
	"github.com/medtrack-app/entitlements/pkg/httpserver"
	"github.com/medtrack-app/entitlements/pkg/logger"
	"github.com/medtrack-app/entitlements/pkg/pg"
	"github.com/medtrack-app/entitlements/pkg/redis"
	"github.com/medtrack-app/entitlements/pkg/subscription"
	"github.com/medtrack-app/entitlements/pkg/usage"
)

// staleExpirer is implemented by the memory and Postgres repositories.
type staleExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// backends holds the storage and messaging dependencies of the service.
type backends struct {
	// repo is the decorated repository: breaker, then change notifications.
	repo    subscription.Repository
	breaker *subscription.BreakerRepository
	expirer staleExpirer
	feed    changefeed.Feed
	usage   usage.Store
	checks  []httpserver.Check
	closers []func()
}

func openBackends(ctx context.Context, app config.App, log *slog.Logger) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		if err != nil {
			b.close()
		}
	}()

	repoOpts := []subscription.Option{subscription.WithPeriod(app.SubscriptionPeriod)}

	var base subscription.Repository
	switch app.SubscriptionStore {
	case config.BackendPostgres:
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.checks = append(b.checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})

		repo := subscription.NewPostgresRepository(pool, repoOpts...)
		base, b.expirer = repo, repo
	default:
		repo := subscription.NewMemoryRepository(repoOpts...)
		base, b.expirer = repo, repo
	}

	var client *goredis.Client
	var redisCfg redis.Config
	if app.NeedsRedis() {
		if err := config.Load(&redisCfg); err != nil {
			return nil, err
		}
		client, err = redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.checks = append(b.checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	}

	switch app.UsageStore {
	case config.BackendRedis:
		b.usage = usage.NewRedisStore(client, usage.WithKeyPrefix(redisCfg.KeyPrefix))
	default:
		b.usage = usage.NewMemoryStore(nil)
	}

	switch app.ChangeFeed {
	case config.BackendRedis:
		b.feed = changefeed.NewRedisFeed(client,
			changefeed.WithChannel(redisCfg.FeedChannel),
			changefeed.WithLogger(log),
		)
	default:
		b.feed = changefeed.NewMemoryFeed(64)
	}
	// runs before the redis client is closed
	b.closers = append(b.closers, func() { _ = b.feed.Close() })

	b.breaker = subscription.NewBreakerRepository(base, subscription.BreakerConfig{
		MaxFailures: app.BreakerMaxFailures,
		OpenTimeout: app.BreakerOpenTimeout,
	}, log)
	b.repo = subscription.NewNotifyingRepository(b.breaker, b.feed, log)

	log.InfoContext(ctx, "backends ready",
		logger.Component("entitlementd"),
		slog.String("subscriptions", app.SubscriptionStore),
		slog.String("usage", app.UsageStore),
		slog.String("changefeed", app.ChangeFeed),
	)
	return b, nil
}

// close releases backends in reverse order of acquisition.
func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
