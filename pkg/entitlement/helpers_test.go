package entitlement_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/changefeed"
	"github.com/medtrack-app/entitlements/pkg/entitlement"
	"github.com/medtrack-app/entitlements/pkg/logger"
	"github.com/medtrack-app/entitlements/pkg/subscription"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	clock  *fakeClock
	repo   *subscription.MemoryRepository
	engine *entitlement.Engine
}

func newFixture(t *testing.T, opts ...entitlement.Option) *fixture {
	t.Helper()
	return newFixtureWithClock(t, newFakeClock(), opts...)
}

func newFixtureWithClock(t *testing.T, clk *fakeClock, opts ...entitlement.Option) *fixture {
	t.Helper()
	repo := subscription.NewMemoryRepository(subscription.WithClock(clk.Now))
	base := []entitlement.Option{
		entitlement.WithClock(clk.Now),
		entitlement.WithLogger(logger.Discard()),
	}
	e := entitlement.New(repo, catalog.Default(), append(base, opts...)...)
	t.Cleanup(e.Teardown)
	return &fixture{clock: clk, repo: repo, engine: e}
}

// gatedRepo holds the next FetchSubscription call after it has read its data.
type gatedRepo struct {
	*subscription.MemoryRepository

	mu      sync.Mutex
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedRepo) hold() (entered <-chan struct{}, release func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gate = make(chan struct{})
	g.entered = make(chan struct{})
	gate := g.gate
	return g.entered, func() { close(gate) }
}

func (g *gatedRepo) FetchSubscription(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	sub, err := g.MemoryRepository.FetchSubscription(ctx, userID)

	g.mu.Lock()
	gate, entered := g.gate, g.entered
	g.gate, g.entered = nil, nil
	g.mu.Unlock()

	if gate != nil {
		close(entered)
		<-gate
	}
	return sub, err
}

// recorder collects listener snapshots.
type recorder struct {
	mu     sync.Mutex
	states []entitlement.State
}

func (r *recorder) listen(s entitlement.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []entitlement.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entitlement.State, len(r.states))
	copy(out, r.states)
	return out
}

// expirations counts active -> inactive transitions of the trial period.
func (r *recorder) expirations() int {
	var n int
	prev := false
	for _, s := range r.all() {
		if prev && !s.IsTrialActive && s.TrialExpiresAt != nil {
			n++
		}
		prev = s.IsTrialActive
	}
	return n
}

// countingSource counts the subscriptions opened on a feed.
type countingSource struct {
	changefeed.Source
	opened atomic.Int32
}

func (c *countingSource) Subscribe(ctx context.Context) changefeed.Subscriber {
	c.opened.Add(1)
	return c.Source.Subscribe(ctx)
}
