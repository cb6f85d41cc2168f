package subscription_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/subscription"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) FetchSubscription(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockRepository) FetchFeatureTrials(ctx context.Context, userID uuid.UUID) ([]subscription.FeatureTrial, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.FeatureTrial), args.Error(1)
}

func (m *mockRepository) FetchTrialStatus(ctx context.Context, userID uuid.UUID) (subscription.TrialStatus, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(subscription.TrialStatus), args.Error(1)
}

func (m *mockRepository) RecordFeatureTrial(ctx context.Context, userID uuid.UUID, featureName string) error {
	return m.Called(ctx, userID, featureName).Error(0)
}

func (m *mockRepository) UpsertSubscription(ctx context.Context, userID uuid.UUID, plan catalog.PlanType) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockRepository) CancelSubscription(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}
