package entitlement

import (
	"context"

	"github.com/google/uuid"

	"github.com/medtrack-app/entitlements/pkg/usage"
)

// CheckFeatureUsage reports this month's usage of ft under the plan the
// session currently grants. Any failure yields a Result with CanUse=false.
func (e *Engine) CheckFeatureUsage(ctx context.Context, userID uuid.UUID, ft usage.FeatureType) (usage.Result, error) {
	deny := usage.Result{Level: usage.LevelReached}
	if e.limiter == nil {
		return deny, ErrUsageNotConfigured
	}
	st, err := e.usageSession(userID)
	if err != nil {
		return deny, err
	}

	plan, _ := e.effectivePlan(st, e.now())
	res, err := e.limiter.CheckFeatureUsage(ctx, userID, plan, ft)
	if err != nil {
		res.CanUse = false
		return res, err
	}
	return res, nil
}

// IncrementFeatureUsage counts one successful use of ft. Call it after the
// metered operation succeeded.
func (e *Engine) IncrementFeatureUsage(ctx context.Context, userID uuid.UUID, ft usage.FeatureType) (int64, error) {
	if e.limiter == nil {
		return 0, ErrUsageNotConfigured
	}
	if _, err := e.usageSession(userID); err != nil {
		return 0, err
	}
	return e.limiter.IncrementFeatureUsage(ctx, userID, ft)
}

func (e *Engine) usageSession(userID uuid.UUID) (State, error) {
	st, loaded := e.view()
	switch {
	case userID == uuid.Nil:
		return st, ErrNoUser
	case st.UserID != userID:
		return st, ErrSessionMismatch
	case !loaded:
		return st, ErrNotLoaded
	}
	return st, nil
}
