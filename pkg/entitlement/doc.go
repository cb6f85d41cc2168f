// Package entitlement decides, for a signed-in user and a gated feature,
// whether access is allowed right now.
//
// An Engine is bound to one user session. Load fetches the user's
// subscription, consumed feature trials and trial period concurrently and
// commits them as one State; Refresh repeats it after purchases or
// cancellations, and Teardown clears everything on sign-out. Loads are
// generation-numbered, so a slow load that was overtaken never overwrites a
// newer one, and a load for a different user starts from an empty state.
//
// Access rules (see Decide):
//
//   - features outside the catalog are denied;
//   - a current subscription (status active and not past its expiry) grants
//     exactly the features its plan includes;
//   - without one, every feature may be tried once; RecordFeatureTrial
//     consumes that trial.
//
// Every check takes the user id explicitly and answers false for anyone but
// the session owner. Repository failures never turn into a grant.
//
// A time-boxed trial period is tracked by a trial.Clock; WithTrialPlan lets
// it stand in for a plan tier. WithLimiter adds monthly usage caps and
// WithChangeFeed refreshes the engine when another process changes the
// user's data.
//
//	engine := entitlement.New(repo, catalog.Default(),
//		entitlement.WithLimiter(limiter),
//		entitlement.WithChangeFeed(feed),
//	)
//	defer engine.Teardown()
//
//	if err := engine.Load(ctx, userID); err != nil {
//		log.Warn("entitlements unavailable", logger.Error(err))
//	}
//	if engine.CanUseFeature(userID, "ai_chat") {
//		// ...
//	}
//
// Sessions keeps one Engine per signed-in user for servers handling many users.
package entitlement
