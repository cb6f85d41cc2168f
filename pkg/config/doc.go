// Package config loads process configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
//
//   - LoadEnv reads one or more .env files; later files win.
//   - Load parses the environment into any struct annotated with env tags and
//     caches the result per type, so repeated calls are cheap.
//   - App aggregates the entitlementd settings and validates backend choices.
//
// Connection settings for Postgres and Redis are declared next to their
// clients (pg.Config, redis.Config) and loaded with the same Load call.
//
// # Usage
//
//	if err := config.LoadEnv(".env.local"); err != nil {
//	    return err
//	}
//	var app config.App
//	if err := config.Load(&app); err != nil {
//	    return err
//	}
//	if err := app.Validate(); err != nil {
//	    return err
//	}
//
// # Errors
//
//   - ErrParsingConfig when the environment does not fit the struct.
//   - ErrLoadingEnvFile when a .env file cannot be read.
//   - ErrNilPointer when Load receives nil.
//   - ErrInvalidConfig from App.Validate.
//
// Use ResetCache in tests that change the environment between loads.
package config
