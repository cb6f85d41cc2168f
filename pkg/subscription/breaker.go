package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/medtrack-app/entitlements/pkg/catalog"
)

// BreakerConfig tunes the circuit breaker around a Repository.
type BreakerConfig struct {
	Name             string
	MaxFailures      uint32        // consecutive failures that open the circuit
	OpenTimeout      time.Duration // how long the circuit stays open
	HalfOpenRequests uint32        // requests allowed while half-open
	Interval         time.Duration // closed-state counter reset period, 0 disables
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Name == "" {
		c.Name = "subscription-repository"
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
	return c
}

// BreakerRepository short-circuits calls to a failing backend.
// While open, every call fails fast with ErrRepositoryUnavailable,
// which the engine handles like any other fetch failure.
type BreakerRepository struct {
	next Repository
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerRepository wraps next with a circuit breaker.
func NewBreakerRepository(next Repository, cfg BreakerConfig, log *slog.Logger) *BreakerRepository {
	if next == nil {
		panic("subscription: repository is required")
	}
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: isBackendHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("subscription repository circuit changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &BreakerRepository{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State returns the current breaker state.
func (b *BreakerRepository) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerRepository) FetchSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return execute(b, func() (*Subscription, error) { return b.next.FetchSubscription(ctx, userID) })
}

func (b *BreakerRepository) FetchFeatureTrials(ctx context.Context, userID uuid.UUID) ([]FeatureTrial, error) {
	return execute(b, func() ([]FeatureTrial, error) { return b.next.FetchFeatureTrials(ctx, userID) })
}

func (b *BreakerRepository) FetchTrialStatus(ctx context.Context, userID uuid.UUID) (TrialStatus, error) {
	return execute(b, func() (TrialStatus, error) { return b.next.FetchTrialStatus(ctx, userID) })
}

func (b *BreakerRepository) RecordFeatureTrial(ctx context.Context, userID uuid.UUID, featureName string) error {
	_, err := execute(b, func() (struct{}, error) {
		return struct{}{}, b.next.RecordFeatureTrial(ctx, userID, featureName)
	})
	return err
}

func (b *BreakerRepository) UpsertSubscription(ctx context.Context, userID uuid.UUID, plan catalog.PlanType) (*Subscription, error) {
	return execute(b, func() (*Subscription, error) { return b.next.UpsertSubscription(ctx, userID, plan) })
}

func (b *BreakerRepository) CancelSubscription(ctx context.Context, userID uuid.UUID) error {
	_, err := execute(b, func() (struct{}, error) {
		return struct{}{}, b.next.CancelSubscription(ctx, userID)
	})
	return err
}

// StartTrialPeriod forwards to the wrapped repository when it supports trial periods.
func (b *BreakerRepository) StartTrialPeriod(ctx context.Context, userID uuid.UUID, expiresAt time.Time) error {
	starter, ok := b.next.(TrialPeriodStarter)
	if !ok {
		return ErrTrialPeriodUnsupported
	}
	_, err := execute(b, func() (struct{}, error) {
		return struct{}{}, starter.StartTrialPeriod(ctx, userID, expiresAt)
	})
	return err
}

func execute[T any](b *BreakerRepository, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) {
		v, err := fn()
		return v, err
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, errors.Join(ErrRepositoryUnavailable, err)
		}
		return zero, err
	}
	out, _ := res.(T)
	return out, nil
}

// isBackendHealthy keeps caller mistakes and cancellations from tripping the breaker.
func isBackendHealthy(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrSubscriptionNotFound),
		errors.Is(err, ErrMissingUserID),
		errors.Is(err, ErrMissingFeatureName),
		errors.Is(err, ErrInvalidPlan),
		errors.Is(err, context.Canceled):
		return true
	default:
		return false
	}
}

var _ Repository = (*BreakerRepository)(nil)
