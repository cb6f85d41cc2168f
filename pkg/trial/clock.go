package trial

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is how often a running clock re-evaluates the remaining time.
const DefaultInterval = time.Minute

// State is a snapshot of the trial countdown.
type State struct {
	Active    bool
	ExpiresAt *time.Time
	Remaining string // empty when no trial is tracked
}

// Clock tracks a time-boxed trial against a fixed expiry timestamp.
//
// Remaining time is always recomputed from the wall clock, so the countdown
// stays correct across process suspension. The active -> expired transition
// is terminal: it happens at most once per Start and stops the ticker.
//
// Callbacks run on the clock goroutine (or on the caller of Start/Tick).
// They may call Stop or Start, but must not block for long.
type Clock struct {
	now      func() time.Time
	interval time.Duration
	onChange func(State)
	onExpire func(expiresAt time.Time)
	log      *slog.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	expired bool
	stop    chan struct{}
}

// Option configures a Clock.
type Option func(*Clock)

// WithNow overrides the wall-clock source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// WithInterval sets the re-evaluation cadence.
func WithInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithOnChange registers a callback invoked after every state change.
func WithOnChange(fn func(State)) Option {
	return func(c *Clock) { c.onChange = fn }
}

// WithOnExpire registers a callback invoked exactly once when a started trial expires.
func WithOnExpire(fn func(expiresAt time.Time)) Option {
	return func(c *Clock) { c.onExpire = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Clock) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a stopped clock.
func New(opts ...Option) *Clock {
	c := &Clock{
		now:      time.Now,
		interval: DefaultInterval,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins tracking expiresAt, replacing any previous trial.
// An expiry already in the past produces the expired state immediately and
// starts no ticker.
func (c *Clock) Start(expiresAt time.Time) {
	c.mu.Lock()
	c.haltLocked()
	c.gen++
	gen := c.gen
	exp := expiresAt
	c.state = State{ExpiresAt: &exp}
	c.expired = false

	st, expiredNow := c.evaluateLocked()
	if !expiredNow {
		c.stop = make(chan struct{})
		go c.run(gen, c.stop)
	}
	c.mu.Unlock()

	c.emit(st, expiredNow, exp)
}

// Stop cancels the countdown and clears the state without invoking callbacks.
// Safe to call on a stopped clock.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.haltLocked()
	c.gen++
	c.state = State{}
	c.expired = false
}

// Tick re-evaluates the countdown immediately and returns the resulting state.
// It is a no-op once the trial has expired or when no trial is tracked.
func (c *Clock) Tick() State {
	c.mu.Lock()
	gen := c.gen
	st, expiredNow, changed := c.tickLocked(gen)
	var exp time.Time
	if st.ExpiresAt != nil {
		exp = *st.ExpiresAt
	}
	if expiredNow {
		c.haltLocked()
	}
	c.mu.Unlock()

	if changed {
		c.emit(st, expiredNow, exp)
	}
	return st
}

// State returns the current snapshot.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Running reports whether a ticker goroutine is active.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *Clock) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			st, expiredNow, changed := c.tickLocked(gen)
			stale := gen != c.gen
			if expiredNow {
				c.haltLocked()
			}
			c.mu.Unlock()

			if stale {
				return
			}
			if changed {
				var exp time.Time
				if st.ExpiresAt != nil {
					exp = *st.ExpiresAt
				}
				c.emit(st, expiredNow, exp)
			}
			if expiredNow {
				return
			}
		}
	}
}

// tickLocked evaluates the trial for generation gen.
func (c *Clock) tickLocked(gen uint64) (st State, expiredNow, changed bool) {
	if gen != c.gen || c.expired || c.state.ExpiresAt == nil {
		return c.state, false, false
	}
	prev := c.state
	st, expiredNow = c.evaluateLocked()
	return st, expiredNow, prev.Active != st.Active || prev.Remaining != st.Remaining
}

// evaluateLocked recomputes the state from the wall clock. It reports whether
// this call performed the terminal transition.
func (c *Clock) evaluateLocked() (State, bool) {
	remaining := c.state.ExpiresAt.Sub(c.now())
	c.state.Remaining = FormatRemaining(remaining)
	if remaining <= 0 {
		c.state.Active = false
		if !c.expired {
			c.expired = true
			return c.state, true
		}
		return c.state, false
	}
	c.state.Active = true
	return c.state, false
}

// haltLocked signals the ticker goroutine to exit.
func (c *Clock) haltLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Clock) emit(st State, expiredNow bool, expiresAt time.Time) {
	if c.onChange != nil {
		c.onChange(st)
	}
	if expiredNow {
		c.log.Debug("trial clock expired", slog.Time("expires_at", expiresAt))
		if c.onExpire != nil {
			c.onExpire(expiresAt)
		}
	}
}
