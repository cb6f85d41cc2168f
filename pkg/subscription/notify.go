package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/changefeed"
	"github.com/medtrack-app/entitlements/pkg/logger"
)

// NotifyingRepository publishes a change event after every successful mutation.
// Publish failures are logged and never fail the mutation itself.
type NotifyingRepository struct {
	Repository
	pub changefeed.Publisher
	log *slog.Logger
	now func() time.Time
}

// NewNotifyingRepository wraps next so that mutations emit change events on pub.
func NewNotifyingRepository(next Repository, pub changefeed.Publisher, log *slog.Logger) *NotifyingRepository {
	if next == nil || pub == nil {
		panic("subscription: repository and publisher are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &NotifyingRepository{
		Repository: next,
		pub:        pub,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (n *NotifyingRepository) RecordFeatureTrial(ctx context.Context, userID uuid.UUID, featureName string) error {
	if err := n.Repository.RecordFeatureTrial(ctx, userID, featureName); err != nil {
		return err
	}
	n.publish(ctx, changefeed.Event{Kind: changefeed.KindTrialRecorded, UserID: userID, Feature: featureName})
	return nil
}

func (n *NotifyingRepository) UpsertSubscription(ctx context.Context, userID uuid.UUID, plan catalog.PlanType) (*Subscription, error) {
	sub, err := n.Repository.UpsertSubscription(ctx, userID, plan)
	if err != nil {
		return nil, err
	}
	n.publish(ctx, changefeed.Event{Kind: changefeed.KindSubscriptionChanged, UserID: userID})
	return sub, nil
}

func (n *NotifyingRepository) CancelSubscription(ctx context.Context, userID uuid.UUID) error {
	if err := n.Repository.CancelSubscription(ctx, userID); err != nil {
		return err
	}
	n.publish(ctx, changefeed.Event{Kind: changefeed.KindSubscriptionChanged, UserID: userID})
	return nil
}

// StartTrialPeriod forwards to the wrapped repository and announces the new period.
func (n *NotifyingRepository) StartTrialPeriod(ctx context.Context, userID uuid.UUID, expiresAt time.Time) error {
	starter, ok := n.Repository.(TrialPeriodStarter)
	if !ok {
		return ErrTrialPeriodUnsupported
	}
	if err := starter.StartTrialPeriod(ctx, userID, expiresAt); err != nil {
		return err
	}
	n.publish(ctx, changefeed.Event{Kind: changefeed.KindTrialPeriodChanged, UserID: userID})
	return nil
}

func (n *NotifyingRepository) publish(ctx context.Context, ev changefeed.Event) {
	ev.At = n.now()
	if err := n.pub.Publish(ctx, ev); err != nil {
		n.log.WarnContext(ctx, "failed to publish entitlement change",
			logger.Event(string(ev.Kind)),
			logger.UserID(ev.UserID),
			logger.Error(err),
		)
	}
}

var (
	_ Repository         = (*NotifyingRepository)(nil)
	_ TrialPeriodStarter = (*NotifyingRepository)(nil)
)
