package entitlement

import (
	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/subscription"
)

// Reason explains a Decision.
type Reason string

const (
	ReasonUnknownFeature  Reason = "unknown_feature"
	ReasonIncludedInPlan  Reason = "included_in_plan"
	ReasonNotInPlan       Reason = "not_in_plan"
	ReasonTrialAvailable  Reason = "trial_available"
	ReasonTrialConsumed   Reason = "trial_consumed"
	ReasonTrialPeriod     Reason = "trial_period"
	ReasonNoUser          Reason = "no_user"
	ReasonSessionMismatch Reason = "session_mismatch"
	ReasonNotLoaded       Reason = "not_loaded"
)

// Decision is the outcome of an access check.
type Decision struct {
	Feature string            `json:"feature"`
	Allowed bool              `json:"allowed"`
	Reason  Reason            `json:"reason"`
	Plan    *catalog.PlanType `json:"plan,omitempty"`
}

// Decide applies the access rules for one feature:
//
//  1. a feature outside the catalog is denied;
//  2. with a current plan, access follows the catalog inclusion for that plan;
//  3. without one, access is allowed until the feature's one-time trial is consumed.
//
// plan must be nil unless the user has a current, non-expired subscription.
func Decide(cat *catalog.Catalog, feature string, plan *catalog.PlanType, trials []subscription.FeatureTrial) Decision {
	d := Decision{Feature: feature, Plan: plan}

	if !cat.Has(feature) {
		d.Reason = ReasonUnknownFeature
		return d
	}

	if plan != nil {
		d.Allowed = cat.Includes(feature, *plan)
		if d.Allowed {
			d.Reason = ReasonIncludedInPlan
		} else {
			d.Reason = ReasonNotInPlan
		}
		return d
	}

	if HasFeatureTrial(trials, feature) {
		d.Reason = ReasonTrialConsumed
		return d
	}
	d.Allowed = true
	d.Reason = ReasonTrialAvailable
	return d
}

// HasFeatureTrial reports whether trials contains a consumed trial for feature.
func HasFeatureTrial(trials []subscription.FeatureTrial, feature string) bool {
	for _, t := range trials {
		if t.FeatureName == feature {
			return true
		}
	}
	return false
}

func denied(feature string, reason Reason) Decision {
	return Decision{Feature: feature, Reason: reason}
}
