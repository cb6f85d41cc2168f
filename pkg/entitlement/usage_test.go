package entitlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/entitlement"
	"github.com/medtrack-app/entitlements/pkg/logger"
	"github.com/medtrack-app/entitlements/pkg/usage"
)

func newUsageFixture(t *testing.T, opts ...entitlement.Option) *fixture {
	t.Helper()
	clk := newFakeClock()
	lim, err := usage.NewLimiter(
		usage.NewMemoryStore(clk.Now),
		usage.WithClock(clk.Now),
		usage.WithLimits(usage.Limits{
			usage.FreePlan:               {usage.FeatureAIChat: 2},
			string(catalog.PlanStandard): {usage.FeatureAIChat: 10},
			string(catalog.PlanPremium):  {usage.FeatureAIChat: usage.Unlimited},
		}),
		usage.WithLogger(logger.Discard()),
	)
	require.NoError(t, err)

	return newFixtureWithClock(t, clk, append([]entitlement.Option{entitlement.WithLimiter(lim)}, opts...)...)
}

func TestEngine_CheckFeatureUsage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newUsageFixture(t)
	user := uuid.New()
	_, err := f.repo.UpsertSubscription(ctx, user, catalog.PlanStandard)
	require.NoError(t, err)
	require.NoError(t, f.engine.Load(ctx, user))

	for range 8 {
		_, err := f.engine.IncrementFeatureUsage(ctx, user, usage.FeatureAIChat)
		require.NoError(t, err)
	}

	res, err := f.engine.CheckFeatureUsage(ctx, user, usage.FeatureAIChat)
	require.NoError(t, err)
	assert.True(t, res.CanUse)
	assert.Equal(t, int64(8), res.CurrentUsage)
	assert.Equal(t, int64(10), res.Limit)
	assert.Equal(t, usage.LevelNearLimit, res.Level)
}

func TestEngine_UsageFollowsPlan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newUsageFixture(t)
	user := uuid.New()
	require.NoError(t, f.engine.Load(ctx, user))

	for range 2 {
		_, err := f.engine.IncrementFeatureUsage(ctx, user, usage.FeatureAIChat)
		require.NoError(t, err)
	}
	res, err := f.engine.CheckFeatureUsage(ctx, user, usage.FeatureAIChat)
	require.NoError(t, err)
	assert.False(t, res.CanUse)
	assert.Equal(t, usage.LevelReached, res.Level)

	_, err = f.engine.ChangePlan(ctx, user, catalog.PlanPremium)
	require.NoError(t, err)
	res, err = f.engine.CheckFeatureUsage(ctx, user, usage.FeatureAIChat)
	require.NoError(t, err)
	assert.True(t, res.CanUse)
	assert.Equal(t, usage.Unlimited, res.Limit)
}

func TestEngine_UsageTrialPlan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newUsageFixture(t, entitlement.WithTrialPlan(catalog.PlanStandard))
	user := uuid.New()
	require.NoError(t, f.repo.StartTrialPeriod(ctx, user, f.clock.Now().Add(time.Hour)))
	require.NoError(t, f.engine.Load(ctx, user))

	res, err := f.engine.CheckFeatureUsage(ctx, user, usage.FeatureAIChat)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Limit)
}

func TestEngine_UsageDenials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newUsageFixture(t)
	user := uuid.New()
	require.NoError(t, f.engine.Load(ctx, user))

	res, err := f.engine.CheckFeatureUsage(ctx, uuid.New(), usage.FeatureAIChat)
	assert.ErrorIs(t, err, entitlement.ErrSessionMismatch)
	assert.False(t, res.CanUse)

	_, err = f.engine.IncrementFeatureUsage(ctx, uuid.Nil, usage.FeatureAIChat)
	assert.ErrorIs(t, err, entitlement.ErrNoUser)

	res, err = f.engine.CheckFeatureUsage(ctx, user, usage.FeatureHealthReport)
	assert.ErrorIs(t, err, usage.ErrUnknownFeatureType)
	assert.False(t, res.CanUse)

	plain := newFixture(t)
	require.NoError(t, plain.engine.Load(ctx, user))
	res, err = plain.engine.CheckFeatureUsage(ctx, user, usage.FeatureAIChat)
	assert.ErrorIs(t, err, entitlement.ErrUsageNotConfigured)
	assert.False(t, res.CanUse)
}
