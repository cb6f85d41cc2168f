package usage

import (
	"fmt"
	"maps"

	"github.com/medtrack-app/entitlements/pkg/catalog"
)

// Limits holds monthly caps keyed by plan key (see PlanKey), then feature type.
type Limits map[string]map[FeatureType]int64

// DefaultLimits returns the built-in monthly caps.
func DefaultLimits() Limits {
	return Limits{
		FreePlan: {
			FeatureAIChat:            5,
			FeatureLabInterpretation: 3,
			FeatureHealthReport:      1,
		},
		string(catalog.PlanBasic): {
			FeatureAIChat:            30,
			FeatureLabInterpretation: 10,
			FeatureHealthReport:      3,
		},
		string(catalog.PlanStandard): {
			FeatureAIChat:            100,
			FeatureLabInterpretation: 30,
			FeatureHealthReport:      10,
		},
		string(catalog.PlanPremium): {
			FeatureAIChat:            Unlimited,
			FeatureLabInterpretation: Unlimited,
			FeatureHealthReport:      Unlimited,
		},
	}
}

// For returns the cap for a plan key and feature type.
func (l Limits) For(planKey string, ft FeatureType) (int64, bool) {
	caps, ok := l[planKey]
	if !ok {
		return 0, false
	}
	limit, ok := caps[ft]
	return limit, ok
}

// Knows reports whether any plan defines a cap for ft.
func (l Limits) Knows(ft FeatureType) bool {
	for _, caps := range l {
		if _, ok := caps[ft]; ok {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (l Limits) Clone() Limits {
	out := make(Limits, len(l))
	for k, caps := range l {
		out[k] = maps.Clone(caps)
	}
	return out
}

// Validate checks that every plan key is known and every cap is non-negative or Unlimited.
func (l Limits) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("%w: no plans", ErrInvalidLimits)
	}
	for key, caps := range l {
		if key != FreePlan && !catalog.PlanType(key).Valid() {
			return fmt.Errorf("%w: unknown plan %q", ErrInvalidLimits, key)
		}
		for ft, limit := range caps {
			if ft == "" {
				return fmt.Errorf("%w: empty feature type in plan %q", ErrInvalidLimits, key)
			}
			if limit < 0 && limit != Unlimited {
				return fmt.Errorf("%w: negative limit %d for %s/%s", ErrInvalidLimits, limit, key, ft)
			}
		}
	}
	return nil
}
