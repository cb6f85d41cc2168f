// Package usage meters feature use per user and calendar month.
//
// Caps come from a Limits table keyed by plan ("basic", "standard",
// "premium") plus FreePlan for users without a current subscription.
// Counters live in a Store: MemoryStore for a single process, RedisStore when
// several replicas share totals. Periods are UTC months ("2025-03").
//
// Check before invoking the feature and increment only after it succeeded:
//
//	res, err := limiter.CheckFeatureUsage(ctx, userID, plan, usage.FeatureAIChat)
//	if err != nil || !res.CanUse {
//		return errQuotaExhausted
//	}
//	// ... perform the call ...
//	_, _ = limiter.IncrementFeatureUsage(ctx, userID, usage.FeatureAIChat)
//
// Result.Level is a UI hint: LevelNearLimit from 80% of the cap (configurable),
// LevelReached at 100%.
package usage
