package entitlement_test

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
	if sub := args.Get(0); sub != nil {
		return sub.(*subscription.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) FetchFeatureTrials(ctx context.Context, userID uuid.UUID) ([]subscription.FeatureTrial, error) {
	args := m.Called(ctx, userID)
	if trials := args.Get(0); trials != nil {
		return trials.([]subscription.FeatureTrial), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) FetchTrialStatus(ctx context.Context, userID uuid.UUID) (subscription.TrialStatus, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(subscription.TrialStatus), args.Error(1)
}

func (m *mockRepository) RecordFeatureTrial(ctx context.Context, userID uuid.UUID, featureName string) error {
	args := m.Called(ctx, userID, featureName)
	return args.Error(0)
}

func (m *mockRepository) UpsertSubscription(ctx context.Context, userID uuid.UUID, plan catalog.PlanType) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID, plan)
	if sub := args.Get(0); sub != nil {
		return sub.(*subscription.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) CancelSubscription(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
