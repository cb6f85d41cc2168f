// Package subscription is the storage boundary of the entitlement engine.
//
// It defines the Subscription, FeatureTrial and TrialStatus records and the
// Repository interface the engine consumes, together with implementations:
//
//   - MemoryRepository: in-process maps for tests and local development
//   - PostgresRepository: pgx-backed storage, schema shipped in Migrations (goose)
//   - BreakerRepository: circuit breaker decorator (sony/gobreaker)
//   - NotifyingRepository: publishes changefeed events after mutations
//
// # Records
//
// A user has at most one subscription. It is created on first purchase,
// replaced on upgrade or downgrade and moved to canceled or expired, never
// deleted. The stored status can lag behind wall-clock expiry, so callers
// decide with IsCurrentAt, which requires status active and now < ExpiresAt:
//
//	sub, err := repo.FetchSubscription(ctx, userID)
//	if err != nil {
//		// treat as "no change", never as a grant
//	}
//	if plan := sub.CurrentPlanAt(time.Now()); plan != nil {
//		// paid access on *plan
//	}
//
// # Feature trials
//
// RecordFeatureTrial is idempotent. The pair (user, feature) is unique, so a
// retried call after a timeout stores nothing new and returns nil:
//
//	_ = repo.RecordFeatureTrial(ctx, userID, "ai_chat")
//	_ = repo.RecordFeatureTrial(ctx, userID, "ai_chat") // still one row
//
// # Composition
//
//	var repo subscription.Repository = subscription.NewPostgresRepository(pool)
//	repo = subscription.NewNotifyingRepository(repo, feed, log)
//	repo = subscription.NewBreakerRepository(repo, subscription.BreakerConfig{}, log)
package subscription
