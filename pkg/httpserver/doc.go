// Package httpserver runs the entitlementd HTTP listener with graceful
// shutdown and serves the liveness and readiness checks.
//
// # Features
//
//   - Eager listen: New binds nothing, Run binds the listener before serving,
//     and Addr reports the real address, including the port picked for ":0".
//   - Graceful shutdown when ctx is cancelled or SIGINT/SIGTERM arrives,
//     bounded by the shutdown timeout.
//   - Start and stop hooks for wiring side effects such as log lines or
//     deregistration.
//   - LivenessHandler and ReadinessHandler for /livez and /readyz.
//
// # Configuration
//
// Config carries the env-tagged settings loaded through pkg/config:
//
//	HTTP_ADDR                 listen address (default ":8080")
//	HTTP_READ_TIMEOUT         default 15s
//	HTTP_READ_HEADER_TIMEOUT  default 5s
//	HTTP_WRITE_TIMEOUT        default 15s
//	HTTP_IDLE_TIMEOUT         default 120s
//	HTTP_SHUTDOWN_TIMEOUT     default 10s
//
// NewFromConfig turns it into a Server. Zero fields keep the defaults, and
// explicit options are applied last, so they win:
//
//	srv := httpserver.NewFromConfig(app.HTTP,
//	    httpserver.WithLogger(log),
//	    httpserver.WithStartHook(func(addr string) {
//	        log.Info("listening", "addr", addr)
//	    }),
//	)
//
// # Running
//
// Run blocks until the server stops. Cancel ctx to stop it; a clean shutdown
// returns nil:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(func() error { return srv.Run(ctx, router) })
//	g.Go(func() error { return sweeper(ctx) })
//	return g.Wait()
//
// Shutdown can also be called directly, for example from a test. It is a
// no-op when Run was never called.
//
// # Health checks
//
// Liveness only reports that the process serves requests. Readiness runs
// every named check with the request context bounded by a timeout and
// answers 503 "NOT_READY: <name>" for the first failing one:
//
//	router.Get("/livez", httpserver.LivenessHandler())
//	router.Get("/readyz", httpserver.ReadinessHandler(log, 2*time.Second,
//	    httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
//	    httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)},
//	))
//
// # Errors
//
// Listen and serve failures wrap ErrStart. A failed shutdown, such as one
// that outlives its timeout, wraps ErrShutdown. Both are joined with the
// cause and can be matched with errors.Is.
package httpserver
