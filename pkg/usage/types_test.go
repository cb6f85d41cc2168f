package usage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/usage"
)

func TestLevelFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		current, limit int64
		want           usage.Level
	}{
		{"half used", 5, 10, usage.LevelNone},
		{"just below threshold", 7, 10, usage.LevelNone},
		{"at eighty percent", 8, 10, usage.LevelNearLimit},
		{"one left", 9, 10, usage.LevelNearLimit},
		{"at limit", 10, 10, usage.LevelReached},
		{"over limit", 12, 10, usage.LevelReached},
		{"zero cap", 0, 0, usage.LevelReached},
		{"unlimited", 1000, usage.Unlimited, usage.LevelNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, usage.LevelFor(tt.current, tt.limit))
		})
	}
}

func TestLevelForThreshold(t *testing.T) {
	t.Parallel()
	assert.Equal(t, usage.LevelNone, usage.LevelForThreshold(8, 10, 90))
	assert.Equal(t, usage.LevelNearLimit, usage.LevelForThreshold(9, 10, 90))
}

func TestPercentage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 50, usage.Percentage(5, 10))
	assert.Equal(t, 100, usage.Percentage(15, 10))
	assert.Equal(t, 100, usage.Percentage(0, 0))
	assert.Equal(t, -1, usage.Percentage(3, usage.Unlimited))
}

func TestPlanKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, usage.FreePlan, usage.PlanKey(nil))
	p := catalog.PlanStandard
	assert.Equal(t, "standard", usage.PlanKey(&p))
}

func TestPeriod(t *testing.T) {
	t.Parallel()

	msk := time.FixedZone("MSK", 3*60*60)
	// 02:00 on March 1st in Moscow is still February in UTC.
	local := time.Date(2025, 3, 1, 2, 0, 0, 0, msk)
	assert.Equal(t, "2025-02", usage.Period(local))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), usage.PeriodEnd(local))

	dec := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2025-12", usage.Period(dec))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), usage.PeriodEnd(dec))
}

func TestLimitsValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, usage.DefaultLimits().Validate())
	assert.ErrorIs(t, usage.Limits{}.Validate(), usage.ErrInvalidLimits)
	assert.ErrorIs(t, usage.Limits{"gold": {usage.FeatureAIChat: 1}}.Validate(), usage.ErrInvalidLimits)
	assert.ErrorIs(t, usage.Limits{usage.FreePlan: {usage.FeatureAIChat: -5}}.Validate(), usage.ErrInvalidLimits)
}
