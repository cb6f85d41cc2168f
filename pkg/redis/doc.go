// Package redis connects to the Redis server that backs the monthly usage
// counters and the cross-process entitlement change feed.
//
// The package wraps the go-redis client and adds:
//
//   - Connect, which parses the connection URL and retries the first ping
//     until the server answers, the attempts run out or ctx is done.
//   - Healthcheck, which adapts a client to the readiness check served by
//     pkg/httpserver.
//
// Configuration is described by Config, whose fields are populated from the
// environment through pkg/config:
//
//	REDIS_URL              redis://:password@host:6379/0 (default redis://localhost:6379/0)
//	REDIS_RETRY_ATTEMPTS   connection attempts (default 3)
//	REDIS_RETRY_INTERVAL   pause between attempts (default 2s)
//	REDIS_CONNECT_TIMEOUT  upper bound for the whole connect phase (default 30s)
//	REDIS_KEY_PREFIX       prefix of usage counter keys (default "entitlements:")
//	REDIS_FEED_CHANNEL     pub/sub channel of the change feed (default "entitlements:changes")
//
// # Usage
//
// Load the configuration and connect:
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err // errors.Is(err, redis.ErrRedisNotReady)
//	}
//	defer client.Close()
//
// Hand the client to the components that use it. Both take a
// redis.UniversalClient, so a cluster or sentinel client works as well:
//
//	store := usage.NewRedisStore(client, usage.WithKeyPrefix(cfg.KeyPrefix))
//	feed := changefeed.NewRedisFeed(client, changefeed.WithChannel(cfg.FeedChannel))
//	defer feed.Close() // before client.Close
//
// Register the readiness check:
//
//	checks = append(checks, httpserver.Check{
//	    Name: "redis",
//	    Fn:   redis.Healthcheck(client),
//	})
//
// # Errors
//
// Sentinel errors wrap the underlying go-redis error with errors.Join, so
// both can be matched with errors.Is:
//
//   - ErrEmptyConnectionURL: REDIS_URL is empty
//   - ErrFailedToParseRedisConnString: the URL is malformed
//   - ErrRedisNotReady: no ping succeeded within the retry budget
//   - ErrHealthcheckFailed: a readiness ping failed
//
// # See Also
//
//   - https://github.com/redis/go-redis, the underlying driver
package redis
