package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/changefeed"
	"github.com/medtrack-app/entitlements/pkg/logger"
	"github.com/medtrack-app/entitlements/pkg/subscription"
	"github.com/medtrack-app/entitlements/pkg/trial"
	"github.com/medtrack-app/entitlements/pkg/usage"
)

// DefaultRefreshTimeout bounds a refresh triggered by a change event.
const DefaultRefreshTimeout = 10 * time.Second

// Engine owns the entitlement state of one signed-in user.
//
// Load replaces the state wholesale when the user changes, so data of one
// user is never visible to the next. Every load carries a generation number
// and only the newest load may commit. All access checks fail closed.
type Engine struct {
	repo           subscription.Repository
	cat            *catalog.Catalog
	limiter        *usage.Limiter
	feed           changefeed.Source
	now            func() time.Time
	log            *slog.Logger
	tickInterval   time.Duration
	trialPlan      *catalog.PlanType
	refreshTimeout time.Duration

	mu       sync.RWMutex
	state    State
	loaded   bool
	gen      uint64
	consumed map[string]time.Time // trials taken in this session, not yet confirmed by the repository
	clock    *trial.Clock
	clockKey clockKey

	mutateMu sync.Mutex

	feedMu     sync.Mutex
	feedUser   uuid.UUID
	feedSub    changefeed.Subscriber
	feedCancel context.CancelFunc

	listenersMu  sync.Mutex
	listeners    map[uint64]func(State)
	nextListener uint64
}

type clockKey struct {
	user      uuid.UUID
	expiresAt time.Time
}

func (k clockKey) matches(o clockKey) bool {
	return k.user == o.user && k.expiresAt.Equal(o.expiresAt)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimiter enables the usage methods.
func WithLimiter(l *usage.Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithChangeFeed makes the engine refresh when a change event for its user arrives.
func WithChangeFeed(src changefeed.Source) Option {
	return func(e *Engine) { e.feed = src }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithTrialTickInterval sets how often the trial countdown is re-evaluated.
func WithTrialTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tickInterval = d
		}
	}
}

// WithTrialPlan lets an active time-boxed trial period grant the features of
// plan to users without a current subscription.
func WithTrialPlan(plan catalog.PlanType) Option {
	return func(e *Engine) {
		if plan.Valid() {
			e.trialPlan = &plan
		}
	}
}

// WithRefreshTimeout bounds refreshes triggered by the change feed.
func WithRefreshTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.refreshTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New returns an engine with no user loaded. A nil catalog uses catalog.Default.
// Panics if repo is nil.
func New(repo subscription.Repository, cat *catalog.Catalog, opts ...Option) *Engine {
	if repo == nil {
		panic("entitlement: repository cannot be nil")
	}
	if cat == nil {
		cat = catalog.Default()
	}
	e := &Engine{
		repo:           repo,
		cat:            cat,
		now:            time.Now,
		log:            slog.Default(),
		tickInterval:   trial.DefaultInterval,
		refreshTimeout: DefaultRefreshTimeout,
		listeners:      make(map[uint64]func(State)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(logger.Component("entitlement"))
	return e
}

// Catalog returns the feature catalog the engine decides against.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.cat
}

// UserID returns the user the engine is bound to, or uuid.Nil.
func (e *Engine) UserID() uuid.UUID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.UserID
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.clone()
}

// Loaded reports whether a load for the current user has completed.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded
}

// age returns how long ago the current state was loaded.
func (e *Engine) age() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.loaded || e.state.LoadedAt == nil {
		return math.MaxInt64
	}
	return e.now().Sub(*e.state.LoadedAt)
}

// OnChange registers fn to receive a snapshot after every committed change.
// Listeners run synchronously on the goroutine that made the change.
func (e *Engine) OnChange(fn func(State)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	e.listenersMu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	e.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.listenersMu.Lock()
			delete(e.listeners, id)
			e.listenersMu.Unlock()
		})
	}
}

// Load fetches the subscription, the consumed trials and the trial period of
// userID concurrently and commits them together. uuid.Nil clears the state.
//
// On a fetch failure the last known state is kept, IsLoading is cleared and
// the error is returned wrapped in ErrLoadFailed. A load overtaken by a newer
// one returns ErrLoadSuperseded without touching the state.
func (e *Engine) Load(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		e.reset()
		return nil
	}
	return e.load(ctx, userID, false)
}

// Refresh reloads the current user. It is a no-op when no user is loaded.
func (e *Engine) Refresh(ctx context.Context) error {
	userID := e.UserID()
	if userID == uuid.Nil {
		return nil
	}
	return e.load(ctx, userID, true)
}

// Teardown stops the trial countdown and the change-feed subscription and
// clears the state. Idempotent.
func (e *Engine) Teardown() {
	e.reset()
}

func (e *Engine) load(ctx context.Context, userID uuid.UUID, onlyIfCurrent bool) error {
	e.mu.Lock()
	if onlyIfCurrent && e.state.UserID != userID {
		e.mu.Unlock()
		return ErrLoadSuperseded
	}
	e.gen++
	gen := e.gen
	if e.state.UserID != userID {
		e.state = State{UserID: userID}
		e.loaded = false
		e.consumed = nil
	}
	e.state.IsLoading = true
	snap := e.state.clone()
	e.mu.Unlock()

	e.syncClock()
	e.syncFeed(userID)
	e.notify(snap)

	var (
		sub    *subscription.Subscription
		trials []subscription.FeatureTrial
		status subscription.TrialStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sub, err = e.repo.FetchSubscription(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		trials, err = e.repo.FetchFeatureTrials(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		status, err = e.repo.FetchTrialStatus(gctx, userID)
		return err
	})
	err := g.Wait()

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		e.log.DebugContext(ctx, "discarding superseded entitlement load",
			logger.UserID(userID),
			logger.Generation(gen),
		)
		return ErrLoadSuperseded
	}
	if err != nil {
		e.state.IsLoading = false
		snap = e.state.clone()
		e.mu.Unlock()

		e.log.WarnContext(ctx, "failed to load entitlements, keeping last known state",
			logger.UserID(userID),
			logger.Generation(gen),
			logger.Error(err),
		)
		e.notify(snap)
		return errors.Join(ErrLoadFailed, err)
	}

	now := e.now()
	e.state.Subscription = nil
	if sub != nil {
		cp := *sub
		e.state.Subscription = &cp
	}
	e.state.Trials = e.mergeConsumedLocked(userID, trials)
	e.state.TrialExpiresAt = nil
	if status.ExpiresAt != nil {
		exp := *status.ExpiresAt
		e.state.TrialExpiresAt = &exp
	}
	applyTrial(&e.state, now)
	e.state.IsLoading = false
	e.state.LoadedAt = &now
	e.loaded = true
	snap = e.state.clone()
	e.mu.Unlock()

	if sub.IsStaleAt(now) {
		e.log.InfoContext(ctx, "subscription still marked active after expiry, treating as inactive",
			logger.UserID(userID),
			logger.Plan(sub.PlanType),
		)
	}
	e.log.DebugContext(ctx, "entitlements loaded",
		logger.UserID(userID),
		logger.Generation(gen),
	)

	e.syncClock()
	e.notify(snap)
	return nil
}

func (e *Engine) reset() {
	e.mu.Lock()
	e.gen++
	changed := e.state.UserID != uuid.Nil || e.loaded || e.state.IsLoading
	e.state = State{}
	e.loaded = false
	e.consumed = nil
	e.mu.Unlock()

	e.syncClock()
	e.syncFeed(uuid.Nil)
	if changed {
		e.notify(State{})
	}
}

// mergeConsumedLocked adds trials consumed in this session that the
// repository has not confirmed yet, and forgets the confirmed ones.
func (e *Engine) mergeConsumedLocked(userID uuid.UUID, fetched []subscription.FeatureTrial) []subscription.FeatureTrial {
	out := slices.Clone(fetched)
	for _, name := range slices.Sorted(maps.Keys(e.consumed)) {
		if HasFeatureTrial(fetched, name) {
			delete(e.consumed, name)
			continue
		}
		out = append(out, subscription.FeatureTrial{
			UserID:      userID,
			FeatureName: name,
			UsedAt:      e.consumed[name],
		})
	}
	return out
}

// syncClock makes the running trial clock match the committed trial expiry.
func (e *Engine) syncClock() {
	e.mu.Lock()
	want := clockKey{user: e.state.UserID}
	if e.state.UserID != uuid.Nil && e.state.TrialExpiresAt != nil {
		want.expiresAt = *e.state.TrialExpiresAt
	}
	if e.clock != nil && e.clockKey.matches(want) {
		e.mu.Unlock()
		return
	}

	old := e.clock
	e.clock = nil
	e.clockKey = clockKey{}

	var c *trial.Clock
	if !want.expiresAt.IsZero() {
		c = trial.New(
			trial.WithNow(e.now),
			trial.WithInterval(e.tickInterval),
			trial.WithLogger(e.log),
			trial.WithOnChange(func(s trial.State) { e.onTrialChange(c, s) }),
			trial.WithOnExpire(func(at time.Time) { e.onTrialExpire(c, want.user, at) }),
		)
		e.clock = c
		e.clockKey = want
	}
	e.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	if c != nil {
		c.Start(want.expiresAt)
	}
}

func (e *Engine) onTrialChange(c *trial.Clock, s trial.State) {
	e.mu.Lock()
	if e.clock != c {
		e.mu.Unlock()
		c.Stop()
		return
	}
	changed := e.state.IsTrialActive != s.Active || e.state.TrialRemaining != s.Remaining
	e.state.IsTrialActive = s.Active
	e.state.TrialRemaining = s.Remaining
	snap := e.state.clone()
	e.mu.Unlock()

	if changed {
		e.notify(snap)
	}
}

func (e *Engine) onTrialExpire(c *trial.Clock, userID uuid.UUID, at time.Time) {
	e.mu.RLock()
	current := e.clock == c
	e.mu.RUnlock()
	if !current {
		return
	}

	attrs := []any{logger.UserID(userID), slog.Time("expires_at", at), logger.Event("trial_expired")}
	if e.trialPlan != nil {
		attrs = append(attrs, logger.Plan(*e.trialPlan))
	}
	e.log.Info("trial period expired", attrs...)
}

// syncFeed keeps exactly one change-feed subscription for the session user.
func (e *Engine) syncFeed(userID uuid.UUID) {
	if e.feed == nil {
		return
	}
	e.feedMu.Lock()
	defer e.feedMu.Unlock()

	if e.feedUser == userID && (userID == uuid.Nil || e.feedCancel != nil) {
		return
	}
	if e.feedCancel != nil {
		e.feedCancel()
		e.feedCancel, e.feedSub = nil, nil
	}
	e.feedUser = userID
	if userID == uuid.Nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := e.feed.Subscribe(ctx)
	e.feedSub = sub
	e.feedCancel = func() {
		cancel()
		_ = sub.Close()
	}
	go e.watch(ctx, sub, userID)
}

func (e *Engine) watch(ctx context.Context, sub changefeed.Subscriber, userID uuid.UUID) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				e.dropFeed(sub)
				return
			}
			if ev.UserID != userID || ctx.Err() != nil {
				continue
			}
			rctx, cancel := context.WithTimeout(ctx, e.refreshTimeout)
			err := e.load(rctx, userID, true)
			cancel()
			if err != nil && !errors.Is(err, ErrLoadSuperseded) {
				e.log.Debug("refresh after change event failed",
					logger.UserID(userID),
					logger.Event(string(ev.Kind)),
					logger.Error(err),
				)
			}
		}
	}
}

// dropFeed forgets a subscription that the feed closed on its own, for
// example after dropping a slow consumer, so that the next load subscribes
// again. Events missed in between are covered by the session max age.
func (e *Engine) dropFeed(sub changefeed.Subscriber) {
	e.feedMu.Lock()
	defer e.feedMu.Unlock()

	if e.feedSub != sub {
		return
	}
	e.feedCancel()
	e.feedCancel, e.feedSub = nil, nil
	e.log.Debug("change feed subscription closed by the feed", logger.UserID(e.feedUser))
}

func (e *Engine) notify(s State) {
	e.listenersMu.Lock()
	ids := slices.Sorted(maps.Keys(e.listeners))
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.listeners[id])
	}
	e.listenersMu.Unlock()

	for _, fn := range fns {
		fn(s.clone())
	}
}
