// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// retry, goose migrations read from an embedded filesystem, a health check and
// helpers that classify driver errors.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log, subscription.Migrations); err != nil {
//		return err
//	}
//
// # Error helpers
//
// IsNotFoundError, IsDuplicateKeyError, IsForeignKeyViolationError and
// IsCheckViolationError map pgx errors to the cases repositories care about.
// The subscription repository uses IsDuplicateKeyError to treat a concurrent
// duplicate trial insert as success.
package pg
