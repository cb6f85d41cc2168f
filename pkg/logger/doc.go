// Package logger builds the *slog.Logger used across the entitlement service.
//
// New takes functional options (format, level, output, static attributes and
// context extractors) and wraps the chosen slog handler in a
// LogHandlerDecorator that pulls request-scoped values, such as the acting
// user, out of the context on every record.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, cfg.ServiceName),
//		logger.WithUserIDFromContext(),
//	)
//	log.InfoContext(ctx, "entitlements loaded",
//		logger.Plan(plan),
//		logger.Generation(gen),
//	)
//
// The attribute helpers in attr.go keep key names consistent: user_id,
// feature, feature_type, plan, generation, component, event and error.
// Error and UserID return an empty slog.Attr for nil values, which slog
// drops, so callers need no nil checks.
package logger
