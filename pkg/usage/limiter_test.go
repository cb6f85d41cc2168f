package usage_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/logger"
	"github.com/medtrack-app/entitlements/pkg/usage"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func testLimits() usage.Limits {
	return usage.Limits{
		usage.FreePlan:              {usage.FeatureAIChat: 2},
		string(catalog.PlanBasic):   {usage.FeatureAIChat: 10},
		string(catalog.PlanPremium): {usage.FeatureAIChat: usage.Unlimited},
	}
}

func newLimiter(t *testing.T, clk *clock) *usage.Limiter {
	t.Helper()
	lim, err := usage.NewLimiter(
		usage.NewMemoryStore(clk.Now),
		usage.WithLimits(testLimits()),
		usage.WithClock(clk.Now),
		usage.WithLogger(logger.Discard()),
	)
	require.NoError(t, err)
	return lim
}

func use(t *testing.T, lim *usage.Limiter, user uuid.UUID, n int) {
	t.Helper()
	for range n {
		_, err := lim.IncrementFeatureUsage(context.Background(), user, usage.FeatureAIChat)
		require.NoError(t, err)
	}
}

func TestLimiter_Levels(t *testing.T) {
	t.Parallel()

	basic := catalog.PlanBasic
	tests := []struct {
		name    string
		used    int
		level   usage.Level
		percent int
		canUse  bool
	}{
		{"five of ten", 5, usage.LevelNone, 50, true},
		{"eight of ten", 8, usage.LevelNearLimit, 80, true},
		{"ten of ten", 10, usage.LevelReached, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clk := &clock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
			lim := newLimiter(t, clk)
			user := uuid.New()
			use(t, lim, user, tt.used)

			res, err := lim.CheckFeatureUsage(context.Background(), user, &basic, usage.FeatureAIChat)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.used), res.CurrentUsage)
			assert.Equal(t, int64(10), res.Limit)
			assert.Equal(t, tt.level, res.Level)
			assert.Equal(t, tt.percent, res.Percent)
			assert.Equal(t, tt.canUse, res.CanUse)
			assert.Equal(t, "2025-03", res.Period)
		})
	}
}

func TestLimiter_FreePlanAndUnlimited(t *testing.T) {
	t.Parallel()

	clk := &clock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	lim := newLimiter(t, clk)
	user := uuid.New()
	use(t, lim, user, 2)

	res, err := lim.CheckFeatureUsage(context.Background(), user, nil, usage.FeatureAIChat)
	require.NoError(t, err)
	assert.False(t, res.CanUse)
	assert.Equal(t, int64(2), res.Limit)

	premium := catalog.PlanPremium
	res, err = lim.CheckFeatureUsage(context.Background(), user, &premium, usage.FeatureAIChat)
	require.NoError(t, err)
	assert.True(t, res.CanUse)
	assert.Equal(t, usage.Unlimited, res.Limit)
	assert.Equal(t, -1, res.Percent)
	assert.Equal(t, usage.LevelNone, res.Level)
}

func TestLimiter_MonthRollover(t *testing.T) {
	t.Parallel()

	clk := &clock{t: time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)}
	lim := newLimiter(t, clk)
	user := uuid.New()
	use(t, lim, user, 2)

	clk.Set(time.Date(2025, 4, 1, 0, 30, 0, 0, time.UTC))
	res, err := lim.CheckFeatureUsage(context.Background(), user, nil, usage.FeatureAIChat)
	require.NoError(t, err)
	assert.Zero(t, res.CurrentUsage)
	assert.True(t, res.CanUse)
	assert.Equal(t, "2025-04", res.Period)
}

func TestLimiter_Denials(t *testing.T) {
	t.Parallel()

	clk := &clock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	lim := newLimiter(t, clk)
	standard := catalog.PlanStandard

	t.Run("missing user", func(t *testing.T) {
		t.Parallel()
		res, err := lim.CheckFeatureUsage(context.Background(), uuid.Nil, nil, usage.FeatureAIChat)
		assert.ErrorIs(t, err, usage.ErrMissingUserID)
		assert.False(t, res.CanUse)
	})

	t.Run("unknown feature type", func(t *testing.T) {
		t.Parallel()
		res, err := lim.CheckFeatureUsage(context.Background(), uuid.New(), nil, usage.FeatureType("teleport"))
		assert.ErrorIs(t, err, usage.ErrUnknownFeatureType)
		assert.False(t, res.CanUse)

		_, err = lim.IncrementFeatureUsage(context.Background(), uuid.New(), usage.FeatureType("teleport"))
		assert.ErrorIs(t, err, usage.ErrUnknownFeatureType)
	})

	t.Run("plan without cap", func(t *testing.T) {
		t.Parallel()
		res, err := lim.CheckFeatureUsage(context.Background(), uuid.New(), &standard, usage.FeatureAIChat)
		assert.ErrorIs(t, err, usage.ErrLimitNotConfigured)
		assert.False(t, res.CanUse)
	})
}

type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string) (int64, error) { return 0, s.err }
func (s failingStore) Increment(context.Context, string, time.Time) (int64, error) {
	return 0, s.err
}

func TestLimiter_StoreFailureDenies(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	lim, err := usage.NewLimiter(failingStore{err: storeErr}, usage.WithLogger(logger.Discard()))
	require.NoError(t, err)

	res, err := lim.CheckFeatureUsage(context.Background(), uuid.New(), nil, usage.FeatureAIChat)
	assert.ErrorIs(t, err, usage.ErrFailedToReadUsage)
	assert.ErrorIs(t, err, storeErr)
	assert.False(t, res.CanUse)

	_, err = lim.IncrementFeatureUsage(context.Background(), uuid.New(), usage.FeatureAIChat)
	assert.ErrorIs(t, err, usage.ErrFailedToIncrementUsage)
}

func TestNewLimiter_InvalidLimits(t *testing.T) {
	t.Parallel()

	_, err := usage.NewLimiter(usage.NewMemoryStore(nil), usage.WithLimits(usage.Limits{"gold": {}}))
	assert.ErrorIs(t, err, usage.ErrInvalidLimits)

	_, err = usage.NewLimiter(nil)
	assert.Error(t, err)
}
