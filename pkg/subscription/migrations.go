package subscription

import "embed"

// Migrations holds the goose migrations for the Postgres repository.
// Apply them with pg.Migrate(ctx, pool, cfg, log, subscription.Migrations).
//
//go:embed migrations/*.sql
var Migrations embed.FS
