package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/logger"
	"github.com/medtrack-app/entitlements/pkg/subscription"
)

// RecordFeatureTrial marks the one-time trial of feature as consumed.
//
// The trial counts as consumed for this session before the write is
// attempted, so a failed write never leaves the feature open. Recording an
// already consumed trial succeeds.
func (e *Engine) RecordFeatureTrial(ctx context.Context, userID uuid.UUID, feature string) error {
	if err := e.checkSession(userID); err != nil {
		return err
	}
	if !e.cat.Has(feature) {
		return ErrUnknownFeature
	}

	e.mutateMu.Lock()
	defer e.mutateMu.Unlock()

	e.markConsumed(userID, feature)
	if err := e.repo.RecordFeatureTrial(ctx, userID, feature); err != nil {
		e.log.ErrorContext(ctx, "failed to record feature trial",
			logger.UserID(userID),
			logger.Feature(feature),
			logger.Error(err),
		)
		return errors.Join(ErrTrialRecordFailed, err)
	}

	e.refreshAfterMutation(ctx, userID)
	return nil
}

// ChangePlan buys, upgrades or downgrades the subscription of userID.
func (e *Engine) ChangePlan(ctx context.Context, userID uuid.UUID, plan catalog.PlanType) (*subscription.Subscription, error) {
	if err := e.checkSession(userID); err != nil {
		return nil, err
	}
	if !plan.Valid() {
		return nil, ErrInvalidPlan
	}

	e.mutateMu.Lock()
	defer e.mutateMu.Unlock()

	change := planChange(e.CurrentPlan(userID), plan)
	sub, err := e.repo.UpsertSubscription(ctx, userID, plan)
	if err != nil {
		e.log.ErrorContext(ctx, "failed to change plan",
			logger.UserID(userID),
			logger.Plan(plan),
			logger.Error(err),
		)
		return nil, errors.Join(ErrPlanChangeFailed, err)
	}

	e.apply(userID, func(st *State) {
		cp := *sub
		st.Subscription = &cp
	})
	e.log.InfoContext(ctx, "plan changed",
		logger.UserID(userID),
		logger.Plan(plan),
		slog.String("change", change),
	)
	e.refreshAfterMutation(ctx, userID)
	return sub, nil
}

// CancelSubscription cancels the subscription of userID. Access ends
// immediately; the record keeps its original expiry.
func (e *Engine) CancelSubscription(ctx context.Context, userID uuid.UUID) error {
	if err := e.checkSession(userID); err != nil {
		return err
	}

	e.mutateMu.Lock()
	defer e.mutateMu.Unlock()

	if err := e.repo.CancelSubscription(ctx, userID); err != nil {
		e.log.ErrorContext(ctx, "failed to cancel subscription",
			logger.UserID(userID),
			logger.Error(err),
		)
		return errors.Join(ErrCancelFailed, err)
	}

	e.apply(userID, func(st *State) {
		if st.Subscription != nil {
			st.Subscription.Status = subscription.StatusCanceled
		}
	})
	e.log.InfoContext(ctx, "subscription canceled", logger.UserID(userID))
	e.refreshAfterMutation(ctx, userID)
	return nil
}

// StartTrialPeriod opens a time-boxed trial period for userID ending at
// expiresAt. The repository must implement subscription.TrialPeriodStarter.
func (e *Engine) StartTrialPeriod(ctx context.Context, userID uuid.UUID, expiresAt time.Time) error {
	if err := e.checkSession(userID); err != nil {
		return err
	}
	starter, ok := e.repo.(subscription.TrialPeriodStarter)
	if !ok {
		return subscription.ErrTrialPeriodUnsupported
	}

	e.mutateMu.Lock()
	defer e.mutateMu.Unlock()

	if err := starter.StartTrialPeriod(ctx, userID, expiresAt); err != nil {
		e.log.ErrorContext(ctx, "failed to start trial period",
			logger.UserID(userID),
			logger.Error(err),
		)
		return errors.Join(ErrTrialStartFailed, err)
	}

	now := e.now()
	e.apply(userID, func(st *State) {
		exp := expiresAt.UTC()
		st.TrialExpiresAt = &exp
		applyTrial(st, now)
	})
	e.syncClock()
	e.refreshAfterMutation(ctx, userID)
	return nil
}

// planChange classifies a move from the current plan to next.
func planChange(current *catalog.PlanType, next catalog.PlanType) string {
	switch {
	case current == nil:
		return "purchase"
	case *current == next:
		return "renewal"
	case next.AtLeast(*current):
		return "upgrade"
	default:
		return "downgrade"
	}
}

func (e *Engine) checkSession(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrNoUser
	}
	if e.UserID() != userID {
		return ErrSessionMismatch
	}
	return nil
}

func (e *Engine) markConsumed(userID uuid.UUID, feature string) {
	now := e.now()
	e.apply(userID, func(st *State) {
		if e.consumed == nil {
			e.consumed = make(map[string]time.Time)
		}
		if _, ok := e.consumed[feature]; !ok {
			e.consumed[feature] = now
		}
		if !HasFeatureTrial(st.Trials, feature) {
			st.Trials = append(st.Trials, subscription.FeatureTrial{
				UserID:      userID,
				FeatureName: feature,
				UsedAt:      now,
			})
		}
	})
}

// apply runs fn on the state if it still belongs to userID and notifies listeners.
func (e *Engine) apply(userID uuid.UUID, fn func(st *State)) {
	e.mu.Lock()
	if e.state.UserID != userID {
		e.mu.Unlock()
		return
	}
	fn(&e.state)
	snap := e.state.clone()
	e.mu.Unlock()

	e.notify(snap)
}

func (e *Engine) refreshAfterMutation(ctx context.Context, userID uuid.UUID) {
	err := e.load(ctx, userID, true)
	if err != nil && !errors.Is(err, ErrLoadSuperseded) {
		e.log.WarnContext(ctx, "refresh after mutation failed",
			logger.UserID(userID),
			logger.Error(err),
		)
	}
}
