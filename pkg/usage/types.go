package usage

import (
	"github.com/medtrack-app/entitlements/pkg/catalog"
)

// FeatureType is a metered action counted per calendar month.
type FeatureType string

// Metered feature types.
const (
	FeatureAIChat            FeatureType = "ai_chat"
	FeatureLabInterpretation FeatureType = "lab_interpretation"
	FeatureHealthReport      FeatureType = "health_report"
)

// Unlimited marks a feature type without a monthly cap.
const Unlimited int64 = -1

// FreePlan is the limits key for users without a current subscription.
const FreePlan = "free"

// DefaultNearLimitPercent is the usage share at which the near-limit warning starts.
const DefaultNearLimitPercent = 80

// Level is the warning signal shown next to a usage counter.
// It is advisory; CanUse is the gate.
type Level string

const (
	LevelNone      Level = "none"
	LevelNearLimit Level = "near_limit"
	LevelReached   Level = "reached"
)

// Result describes the current month's usage of a feature type.
type Result struct {
	CanUse       bool   `json:"can_use"`
	CurrentUsage int64  `json:"current_usage"`
	Limit        int64  `json:"limit"`
	Percent      int    `json:"percent"` // 0-100, -1 when unlimited
	Level        Level  `json:"level"`
	Period       string `json:"period"`
}

// PlanKey maps a current plan to its limits key. A nil plan means no subscription.
func PlanKey(plan *catalog.PlanType) string {
	if plan == nil {
		return FreePlan
	}
	return string(*plan)
}

// LevelFor classifies usage with the default near-limit threshold.
func LevelFor(current, limit int64) Level {
	return LevelForThreshold(current, limit, DefaultNearLimitPercent)
}

// LevelForThreshold classifies usage: reached at >= 100%, near limit at >= nearPercent.
func LevelForThreshold(current, limit int64, nearPercent int) Level {
	if limit == Unlimited {
		return LevelNone
	}
	if limit <= 0 || current >= limit {
		return LevelReached
	}
	if current*100 >= limit*int64(nearPercent) {
		return LevelNearLimit
	}
	return LevelNone
}

// Percentage returns usage as percentage (0-100, or -1 for unlimited).
func Percentage(current, limit int64) int {
	if limit == Unlimited {
		return -1
	}
	if limit == 0 {
		return 100
	}
	return min(int((current*100)/limit), 100)
}
