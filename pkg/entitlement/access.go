package entitlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/logger"
)

// CanUseFeature reports whether userID may use feature right now.
// It is false before the first completed load and for any user other than
// the one the engine is bound to.
func (e *Engine) CanUseFeature(userID uuid.UUID, feature string) bool {
	return e.Explain(userID, feature).Allowed
}

// Explain is CanUseFeature with the reason behind the answer.
func (e *Engine) Explain(userID uuid.UUID, feature string) Decision {
	st, loaded := e.view()
	switch {
	case userID == uuid.Nil:
		return denied(feature, ReasonNoUser)
	case st.UserID != userID:
		return denied(feature, ReasonSessionMismatch)
	case !loaded:
		return denied(feature, ReasonNotLoaded)
	}

	plan, viaTrial := e.effectivePlan(st, e.now())
	if viaTrial {
		if e.cat.Includes(feature, *plan) {
			return Decision{Feature: feature, Allowed: true, Reason: ReasonTrialPeriod, Plan: plan}
		}
		plan = nil
	}

	d := Decide(e.cat, feature, plan, st.Trials)
	if d.Reason == ReasonUnknownFeature {
		e.log.Warn("access check for unknown feature",
			logger.UserID(userID),
			logger.Feature(feature),
		)
	}
	return d
}

// HasFeatureTrial reports whether userID has consumed the trial of feature.
func (e *Engine) HasFeatureTrial(userID uuid.UUID, feature string) bool {
	st, _ := e.view()
	if userID == uuid.Nil || st.UserID != userID {
		return false
	}
	return HasFeatureTrial(st.Trials, feature)
}

// IsTrialActive reports whether the time-boxed trial period of userID is running.
func (e *Engine) IsTrialActive(userID uuid.UUID) bool {
	st, _ := e.view()
	if userID == uuid.Nil || st.UserID != userID || st.TrialExpiresAt == nil {
		return false
	}
	return st.IsTrialActive && e.now().Before(*st.TrialExpiresAt)
}

// TrialTimeRemaining returns the countdown label, or "" when no trial period is tracked.
func (e *Engine) TrialTimeRemaining(userID uuid.UUID) string {
	st, _ := e.view()
	if userID == uuid.Nil || st.UserID != userID {
		return ""
	}
	return st.TrialRemaining
}

// CurrentPlan returns the plan of the current subscription of userID, or nil.
func (e *Engine) CurrentPlan(userID uuid.UUID) *catalog.PlanType {
	st, loaded := e.view()
	if !loaded || userID == uuid.Nil || st.UserID != userID {
		return nil
	}
	return st.Subscription.CurrentPlanAt(e.now())
}

func (e *Engine) view() (State, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.clone(), e.loaded
}

// effectivePlan returns the subscription plan, or the trial plan while a
// trial period runs for a user without a current subscription.
func (e *Engine) effectivePlan(st State, now time.Time) (plan *catalog.PlanType, viaTrial bool) {
	if p := st.Subscription.CurrentPlanAt(now); p != nil {
		return p, false
	}
	if e.trialPlan == nil || !st.IsTrialActive || st.TrialExpiresAt == nil || !now.Before(*st.TrialExpiresAt) {
		return nil, false
	}
	p := *e.trialPlan
	return &p, true
}
