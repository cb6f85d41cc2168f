package subscription_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/subscription"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMemoryRepository_RecordFeatureTrial(t *testing.T) {
	t.Parallel()

	t.Run("records once", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		repo := subscription.NewMemoryRepository()
		userID := uuid.New()

		require.NoError(t, repo.RecordFeatureTrial(ctx, userID, "ai_chat"))
		require.NoError(t, repo.RecordFeatureTrial(ctx, userID, "ai_chat"))

		trials, err := repo.FetchFeatureTrials(ctx, userID)
		require.NoError(t, err)
		require.Len(t, trials, 1)
		assert.Equal(t, "ai_chat", trials[0].FeatureName)
		assert.Equal(t, userID, trials[0].UserID)
	})

	t.Run("concurrent duplicates store one row", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		repo := subscription.NewMemoryRepository()
		userID := uuid.New()

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.RecordFeatureTrial(ctx, userID, "health_report"))
			}()
		}
		wg.Wait()

		trials, err := repo.FetchFeatureTrials(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, trials, 1)
	})

	t.Run("trials are scoped per user", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		repo := subscription.NewMemoryRepository()
		alice, bob := uuid.New(), uuid.New()

		require.NoError(t, repo.RecordFeatureTrial(ctx, alice, "ai_chat"))

		trials, err := repo.FetchFeatureTrials(ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, trials)
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()
		repo := subscription.NewMemoryRepository()
		assert.ErrorIs(t, repo.RecordFeatureTrial(context.Background(), uuid.Nil, "x"), subscription.ErrMissingUserID)
		assert.ErrorIs(t, repo.RecordFeatureTrial(context.Background(), uuid.New(), ""), subscription.ErrMissingFeatureName)
	})
}

func TestMemoryRepository_Subscriptions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no subscription returns nil", func(t *testing.T) {
		t.Parallel()
		repo := subscription.NewMemoryRepository()
		sub, err := repo.FetchSubscription(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Nil(t, sub)
	})

	t.Run("upsert then change plan keeps id", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		repo := subscription.NewMemoryRepository(subscription.WithClock(fixedClock(now)), subscription.WithPeriod(24*time.Hour))
		userID := uuid.New()

		first, err := repo.UpsertSubscription(ctx, userID, catalog.PlanStandard)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, first.Status)
		assert.Equal(t, now.Add(24*time.Hour), first.ExpiresAt)

		second, err := repo.UpsertSubscription(ctx, userID, catalog.PlanBasic)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, catalog.PlanBasic, second.PlanType)

		stored, err := repo.FetchSubscription(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, *second, *stored)
	})

	t.Run("invalid plan", func(t *testing.T) {
		t.Parallel()
		repo := subscription.NewMemoryRepository()
		_, err := repo.UpsertSubscription(context.Background(), uuid.New(), catalog.PlanType("gold"))
		assert.ErrorIs(t, err, subscription.ErrInvalidPlan)
	})

	t.Run("cancel keeps record", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		repo := subscription.NewMemoryRepository()
		userID := uuid.New()

		assert.ErrorIs(t, repo.CancelSubscription(ctx, userID), subscription.ErrSubscriptionNotFound)

		_, err := repo.UpsertSubscription(ctx, userID, catalog.PlanPremium)
		require.NoError(t, err)
		require.NoError(t, repo.CancelSubscription(ctx, userID))

		sub, err := repo.FetchSubscription(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, subscription.StatusCanceled, sub.Status)
	})

	t.Run("expire stale", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		repo := subscription.NewMemoryRepository(subscription.WithClock(fixedClock(now)))
		stale := uuid.New()
		fresh := uuid.New()
		repo.PutSubscription(subscription.Subscription{UserID: stale, PlanType: catalog.PlanBasic, Status: subscription.StatusActive, ExpiresAt: now.Add(-time.Minute)})
		repo.PutSubscription(subscription.Subscription{UserID: fresh, PlanType: catalog.PlanBasic, Status: subscription.StatusActive, ExpiresAt: now.Add(time.Minute)})

		n, err := repo.ExpireStale(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		sub, _ := repo.FetchSubscription(ctx, stale)
		assert.Equal(t, subscription.StatusExpired, sub.Status)
		sub, _ = repo.FetchSubscription(ctx, fresh)
		assert.Equal(t, subscription.StatusActive, sub.Status)
	})
}

func TestMemoryRepository_TrialStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	repo := subscription.NewMemoryRepository(subscription.WithClock(fixedClock(now)))
	userID := uuid.New()

	status, err := repo.FetchTrialStatus(ctx, userID)
	require.NoError(t, err)
	assert.False(t, status.IsActive)
	assert.Nil(t, status.ExpiresAt)

	require.NoError(t, repo.StartTrialPeriod(ctx, userID, now.Add(90*time.Second)))
	status, err = repo.FetchTrialStatus(ctx, userID)
	require.NoError(t, err)
	assert.True(t, status.IsActive)
	require.NotNil(t, status.ExpiresAt)
	assert.Equal(t, now.Add(90*time.Second), *status.ExpiresAt)

	require.NoError(t, repo.StartTrialPeriod(ctx, userID, now.Add(-time.Second)))
	status, err = repo.FetchTrialStatus(ctx, userID)
	require.NoError(t, err)
	assert.False(t, status.IsActive)
	assert.NotNil(t, status.ExpiresAt)
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := subscription.NewMemoryRepository()
	_, err := repo.FetchSubscription(ctx, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
}
