package subscription

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack-app/entitlements/pkg/catalog"
)

type trialKey struct {
	userID  uuid.UUID
	feature string
}

// MemoryRepository keeps everything in process memory.
// Intended for tests and local development. Safe for concurrent use.
type MemoryRepository struct {
	opts options

	mu            sync.RWMutex
	subscriptions map[uuid.UUID]Subscription
	trials        map[trialKey]FeatureTrial
	trialPeriods  map[uuid.UUID]time.Time
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository(opts ...Option) *MemoryRepository {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryRepository{
		opts:          o,
		subscriptions: make(map[uuid.UUID]Subscription),
		trials:        make(map[trialKey]FeatureTrial),
		trialPeriods:  make(map[uuid.UUID]time.Time),
	}
}

func (r *MemoryRepository) FetchSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subscriptions[userID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (r *MemoryRepository) FetchFeatureTrials(ctx context.Context, userID uuid.UUID) ([]FeatureTrial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]FeatureTrial, 0)
	for key, trial := range r.trials {
		if key.userID == userID {
			out = append(out, trial)
		}
	}
	slices.SortFunc(out, func(a, b FeatureTrial) int { return a.UsedAt.Compare(b.UsedAt) })
	return out, nil
}

func (r *MemoryRepository) FetchTrialStatus(ctx context.Context, userID uuid.UUID) (TrialStatus, error) {
	if err := ctx.Err(); err != nil {
		return TrialStatus{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	exp, ok := r.trialPeriods[userID]
	if !ok {
		return TrialStatus{}, nil
	}
	return trialStatusAt(&exp, r.opts.now()), nil
}

func (r *MemoryRepository) RecordFeatureTrial(ctx context.Context, userID uuid.UUID, featureName string) error {
	if err := validateInput(userID, featureName); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := trialKey{userID: userID, feature: featureName}
	if _, exists := r.trials[key]; exists {
		return nil
	}
	r.trials[key] = FeatureTrial{
		ID:          uuid.New(),
		UserID:      userID,
		FeatureName: featureName,
		UsedAt:      r.opts.now(),
	}
	return nil
}

func (r *MemoryRepository) UpsertSubscription(ctx context.Context, userID uuid.UUID, plan catalog.PlanType) (*Subscription, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	if !plan.Valid() {
		return nil, ErrInvalidPlan
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.now()
	sub, exists := r.subscriptions[userID]
	if !exists {
		sub.ID = uuid.New()
		sub.UserID = userID
	}
	sub.PlanType = plan
	sub.Status = StatusActive
	sub.StartedAt = now
	sub.ExpiresAt = now.Add(r.opts.period)
	r.subscriptions[userID] = sub

	out := sub
	return &out, nil
}

func (r *MemoryRepository) CancelSubscription(ctx context.Context, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[userID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	sub.Status = StatusCanceled
	r.subscriptions[userID] = sub
	return nil
}

// StartTrialPeriod opens (or moves) the user's time-boxed trial period.
func (r *MemoryRepository) StartTrialPeriod(ctx context.Context, userID uuid.UUID, expiresAt time.Time) error {
	if userID == uuid.Nil {
		return ErrMissingUserID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trialPeriods[userID] = expiresAt.UTC()
	return nil
}

// PutSubscription stores a record as-is, including stale or expired ones.
func (r *MemoryRepository) PutSubscription(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	r.subscriptions[sub.UserID] = sub
}

var (
	_ Repository         = (*MemoryRepository)(nil)
	_ TrialPeriodStarter = (*MemoryRepository)(nil)
)

// ExpireStale moves active subscriptions whose period has ended to expired.
func (r *MemoryRepository) ExpireStale(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.now()
	var n int64
	for id, sub := range r.subscriptions {
		if sub.IsStaleAt(now) {
			sub.Status = StatusExpired
			r.subscriptions[id] = sub
			n++
		}
	}
	return n, nil
}
