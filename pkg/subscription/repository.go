package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack-app/entitlements/pkg/catalog"
)

// Repository is the storage boundary consumed by the entitlement engine.
// Every call may fail; callers must treat a failure as "no change", never as a grant.
type Repository interface {
	// FetchSubscription returns the user's subscription or nil when there is none.
	FetchSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// FetchFeatureTrials returns every trial the user has consumed.
	FetchFeatureTrials(ctx context.Context, userID uuid.UUID) ([]FeatureTrial, error)

	// FetchTrialStatus returns the user's time-boxed trial period.
	FetchTrialStatus(ctx context.Context, userID uuid.UUID) (TrialStatus, error)

	// RecordFeatureTrial marks the feature trial as consumed.
	// Idempotent: recording an existing (user, feature) pair is a no-op returning nil.
	RecordFeatureTrial(ctx context.Context, userID uuid.UUID, featureName string) error

	// UpsertSubscription creates or replaces the user's subscription with an active one.
	UpsertSubscription(ctx context.Context, userID uuid.UUID, plan catalog.PlanType) (*Subscription, error)

	// CancelSubscription moves the user's subscription to canceled.
	CancelSubscription(ctx context.Context, userID uuid.UUID) error
}

// TrialPeriodStarter is implemented by repositories that can open a time-boxed trial.
type TrialPeriodStarter interface {
	StartTrialPeriod(ctx context.Context, userID uuid.UUID, expiresAt time.Time) error
}

// DefaultPeriod is the length of a subscription billing period.
const DefaultPeriod = 30 * 24 * time.Hour

// Option configures repository implementations.
type Option func(*options)

type options struct {
	period time.Duration
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		period: DefaultPeriod,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithPeriod sets the length of a subscription period granted by UpsertSubscription.
func WithPeriod(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.period = d
		}
	}
}

// WithClock overrides the time source. Useful for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func validateInput(userID uuid.UUID, featureName string) error {
	if userID == uuid.Nil {
		return ErrMissingUserID
	}
	if featureName == "" {
		return ErrMissingFeatureName
	}
	return nil
}
