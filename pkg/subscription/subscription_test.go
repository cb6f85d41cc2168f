package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/subscription"
)

func TestSubscription_IsCurrentAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		sub     *subscription.Subscription
		current bool
		stale   bool
	}{
		{"nil", nil, false, false},
		{"active within period", &subscription.Subscription{Status: subscription.StatusActive, ExpiresAt: now.Add(time.Hour)}, true, false},
		{"active but expired", &subscription.Subscription{Status: subscription.StatusActive, ExpiresAt: now.Add(-time.Second)}, false, true},
		{"active expiring exactly now", &subscription.Subscription{Status: subscription.StatusActive, ExpiresAt: now}, false, true},
		{"canceled within period", &subscription.Subscription{Status: subscription.StatusCanceled, ExpiresAt: now.Add(time.Hour)}, false, false},
		{"expired status", &subscription.Subscription{Status: subscription.StatusExpired, ExpiresAt: now.Add(time.Hour)}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.current, tt.sub.IsCurrentAt(now))
			assert.Equal(t, tt.stale, tt.sub.IsStaleAt(now))
		})
	}
}

func TestSubscription_CurrentPlanAt(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	sub := &subscription.Subscription{PlanType: catalog.PlanStandard, Status: subscription.StatusActive, ExpiresAt: now.Add(time.Hour)}

	plan := sub.CurrentPlanAt(now)
	require.NotNil(t, plan)
	assert.Equal(t, catalog.PlanStandard, *plan)

	assert.Nil(t, sub.CurrentPlanAt(now.Add(2*time.Hour)))
}

func TestStatus_Valid(t *testing.T) {
	t.Parallel()
	assert.True(t, subscription.StatusActive.Valid())
	assert.True(t, subscription.StatusCanceled.Valid())
	assert.True(t, subscription.StatusExpired.Valid())
	assert.False(t, subscription.Status("past_due").Valid())
}
