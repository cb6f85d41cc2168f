package entitlement

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/medtrack-app/entitlements/pkg/cache"
	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/subscription"
)

// Session cache defaults.
const (
	DefaultSessionMaxAge   = 30 * time.Second
	DefaultSessionCapacity = 10_000
)

// SessionsConfig bounds how long and how many engines stay cached.
type SessionsConfig struct {
	// MaxAge is how long a loaded state is served before Acquire reloads it
	// from the repository. Change events only shorten this window.
	MaxAge time.Duration
	// Capacity caps the number of cached engines. The least recently used
	// engine is torn down when the cap is exceeded.
	Capacity int
}

func (c SessionsConfig) withDefaults() SessionsConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultSessionMaxAge
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultSessionCapacity
	}
	return c
}

// Sessions keeps at most one Engine per signed-in user.
//
// The repository is the source of truth. A cached engine is reloaded once its
// state is older than MaxAge, and AcquireFresh reloads it unconditionally, so
// a lost change event delays a change by at most MaxAge and never affects
// trial-gated decisions.
type Sessions struct {
	repo subscription.Repository
	cat  *catalog.Catalog
	opts []Option
	cfg  SessionsConfig

	mu        sync.Mutex
	cache     *cache.LRU[uuid.UUID, *session]
	closed    bool
	refreshes singleflight.Group
}

type session struct {
	engine *Engine
	ready  chan struct{}
	err    error
}

// NewSessions returns an empty session registry. Engines are built with
// New(repo, cat, opts...). Zero cfg fields take the defaults.
func NewSessions(repo subscription.Repository, cat *catalog.Catalog, cfg SessionsConfig, opts ...Option) *Sessions {
	if repo == nil {
		panic("entitlement: repository cannot be nil")
	}
	cfg = cfg.withDefaults()
	return &Sessions{
		repo: repo,
		cat:  cat,
		opts: opts,
		cfg:  cfg,
		cache: cache.NewLRU(cfg.Capacity, cache.WithEvictCallback(func(_ uuid.UUID, sess *session) {
			sess.engine.Teardown()
		})),
	}
}

// Acquire returns the loaded engine of userID, creating and loading it on
// first use. Concurrent callers for the same user share one load. A failed
// first load is not cached. A cached engine older than MaxAge is reloaded
// first; if that reload fails the error is returned.
func (s *Sessions) Acquire(ctx context.Context, userID uuid.UUID) (*Engine, error) {
	return s.acquire(ctx, userID, false)
}

// AcquireFresh is Acquire with a forced reload of a cached engine. Use it in
// front of decisions that depend on consumed trials.
func (s *Sessions) AcquireFresh(ctx context.Context, userID uuid.UUID) (*Engine, error) {
	return s.acquire(ctx, userID, true)
}

func (s *Sessions) acquire(ctx context.Context, userID uuid.UUID, fresh bool) (*Engine, error) {
	if userID == uuid.Nil {
		return nil, ErrNoUser
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionsClosed
	}
	if sess, ok := s.cache.Get(userID); ok {
		s.mu.Unlock()
		select {
		case <-sess.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if sess.err != nil {
			return nil, sess.err
		}
		if fresh || sess.engine.age() >= s.cfg.MaxAge {
			if err := s.refresh(ctx, userID, sess.engine); err != nil {
				return nil, err
			}
		}
		return sess.engine, nil
	}
	sess := &session{
		engine: New(s.repo, s.cat, s.opts...),
		ready:  make(chan struct{}),
	}
	s.cache.Put(userID, sess)
	s.mu.Unlock()

	sess.err = sess.engine.Load(ctx, userID)
	close(sess.ready)
	if sess.err != nil {
		// the evict callback tears the engine down
		s.cache.RemoveIf(userID, func(cur *session) bool { return cur == sess })
		return nil, sess.err
	}
	return sess.engine, nil
}

// refresh reloads e once for all concurrent callers. The shared reload is
// not cancelled when one caller goes away.
func (s *Sessions) refresh(ctx context.Context, userID uuid.UUID, e *Engine) error {
	ch := s.refreshes.DoChan(userID.String(), func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.refreshTimeout)
		defer cancel()
		return nil, e.Refresh(rctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil && !errors.Is(res.Err, ErrLoadSuperseded) {
			return res.Err
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup returns the engine of userID without loading or refreshing it.
func (s *Sessions) Lookup(userID uuid.UUID) (*Engine, bool) {
	sess, ok := s.cache.Peek(userID)
	if !ok {
		return nil, false
	}
	select {
	case <-sess.ready:
		return sess.engine, sess.err == nil
	default:
		return nil, false
	}
}

// Release tears down the engine of userID (sign-out).
func (s *Sessions) Release(userID uuid.UUID) {
	s.cache.Remove(userID)
}

// Len returns the number of cached sessions.
func (s *Sessions) Len() int {
	return s.cache.Len()
}

// Close tears down every engine. Acquire fails afterwards.
func (s *Sessions) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cache.Purge()
}
