package usage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/logger"
)

// RetentionGrace keeps a finished month's counter readable for a while after rollover.
const RetentionGrace = 24 * time.Hour

// Limiter enforces monthly caps per plan.
type Limiter struct {
	store       Store
	limits      Limits
	now         func() time.Time
	nearPercent int
	log         *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLimits replaces the default caps.
func WithLimits(l Limits) Option {
	return func(lim *Limiter) {
		if l != nil {
			lim.limits = l.Clone()
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(lim *Limiter) {
		if now != nil {
			lim.now = now
		}
	}
}

// WithNearLimitPercent sets the near-limit threshold (1..99).
func WithNearLimitPercent(p int) Option {
	return func(lim *Limiter) {
		if p > 0 && p < 100 {
			lim.nearPercent = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(lim *Limiter) {
		if l != nil {
			lim.log = l
		}
	}
}

// NewLimiter returns a Limiter backed by store. It fails on an invalid limits table.
func NewLimiter(store Store, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("usage: store cannot be nil")
	}
	lim := &Limiter{
		store:       store,
		limits:      DefaultLimits(),
		now:         time.Now,
		nearPercent: DefaultNearLimitPercent,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(lim)
	}
	if err := lim.limits.Validate(); err != nil {
		return nil, err
	}
	return lim, nil
}

// Limits returns a copy of the configured caps.
func (l *Limiter) Limits() Limits {
	return l.limits.Clone()
}

// CheckFeatureUsage reports the current month's usage for ft under plan
// (nil for users without a current subscription). Any error comes with a
// Result that denies use.
func (l *Limiter) CheckFeatureUsage(ctx context.Context, userID uuid.UUID, plan *catalog.PlanType, ft FeatureType) (Result, error) {
	period := Period(l.now())
	denied := Result{Period: period, Level: LevelReached, Percent: 100}

	if userID == uuid.Nil {
		return denied, ErrMissingUserID
	}
	if !l.limits.Knows(ft) {
		return denied, ErrUnknownFeatureType
	}
	limit, ok := l.limits.For(PlanKey(plan), ft)
	if !ok {
		return denied, ErrLimitNotConfigured
	}

	current, err := l.store.Get(ctx, Key(userID, ft, period))
	if err != nil {
		l.log.ErrorContext(ctx, "failed to read usage counter",
			logger.UserID(userID),
			logger.FeatureType(ft),
			logger.Error(err),
		)
		denied.Limit = limit
		return denied, errors.Join(ErrFailedToReadUsage, err)
	}

	return Result{
		CanUse:       limit == Unlimited || current < limit,
		CurrentUsage: current,
		Limit:        limit,
		Percent:      Percentage(current, limit),
		Level:        LevelForThreshold(current, limit, l.nearPercent),
		Period:       period,
	}, nil
}

// IncrementFeatureUsage counts one successful use of ft in the current month
// and returns the new total.
func (l *Limiter) IncrementFeatureUsage(ctx context.Context, userID uuid.UUID, ft FeatureType) (int64, error) {
	if userID == uuid.Nil {
		return 0, ErrMissingUserID
	}
	if !l.limits.Knows(ft) {
		return 0, ErrUnknownFeatureType
	}

	now := l.now()
	n, err := l.store.Increment(ctx, Key(userID, ft, Period(now)), PeriodEnd(now).Add(RetentionGrace))
	if err != nil {
		return 0, errors.Join(ErrFailedToIncrementUsage, err)
	}
	return n, nil
}
