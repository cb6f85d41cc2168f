package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/medtrack-app/entitlements/pkg/logger"
)

// DefaultChannel is the Redis pub/sub channel used when none is configured.
const DefaultChannel = "entitlements:changes"

// RedisFeed fans events out across processes using Redis pub/sub.
//
// A feed holds a single Redis subscription, opened on the first Subscribe,
// and fans received events out to its local subscribers in process. Events
// are JSON encoded. Redis pub/sub is fire-and-forget, which matches the
// best-effort contract of Feed.
type RedisFeed struct {
	client     redis.UniversalClient
	channel    string
	bufferSize int
	log        *slog.Logger
	hub        *MemoryFeed

	mu     sync.Mutex
	closed bool
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// RedisOption configures a RedisFeed.
type RedisOption func(*RedisFeed)

// WithChannel overrides the pub/sub channel name.
func WithChannel(name string) RedisOption {
	return func(f *RedisFeed) {
		if name != "" {
			f.channel = name
		}
	}
}

// WithBufferSize sets the per-subscriber buffer.
func WithBufferSize(n int) RedisOption {
	return func(f *RedisFeed) { f.bufferSize = max(n, 1) }
}

// WithLogger sets the logger used for decode failures.
func WithLogger(l *slog.Logger) RedisOption {
	return func(f *RedisFeed) {
		if l != nil {
			f.log = l
		}
	}
}

// NewRedisFeed creates a feed on top of an existing Redis client.
// The client is owned by the caller and is not closed by Close.
func NewRedisFeed(client redis.UniversalClient, opts ...RedisOption) *RedisFeed {
	if client == nil {
		panic("changefeed: redis client is required")
	}
	f := &RedisFeed{
		client:     client,
		channel:    DefaultChannel,
		bufferSize: 16,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.hub = NewMemoryFeed(f.bufferSize)
	return f
}

// Publish encodes ev and publishes it on the feed channel. Local subscribers
// receive it back through the shared subscription like any other process.
func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return ErrFeedClosed
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Join(ErrPublish, err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return errors.Join(ErrPublish, err)
	}
	return nil
}

// Subscribe registers a local subscriber that lives until ctx is cancelled
// or it is closed. The shared Redis subscription is opened on first use.
func (f *RedisFeed) Subscribe(ctx context.Context) Subscriber {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		sub := newSubscriber(1)
		_ = sub.Close()
		return sub
	}
	if f.pubsub == nil {
		pctx, cancel := context.WithCancel(context.Background())
		f.pubsub = f.client.Subscribe(pctx, f.channel)
		f.cancel = cancel
		f.done = make(chan struct{})
		go f.pump(pctx, f.pubsub, f.done)
	}
	f.mu.Unlock()

	return f.hub.Subscribe(ctx)
}

func (f *RedisFeed) pump(ctx context.Context, ps *redis.PubSub, done chan<- struct{}) {
	defer close(done)

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				f.log.WarnContext(ctx, "dropping malformed change event",
					slog.String("channel", msg.Channel),
					logger.Error(errors.Join(ErrInvalidEvent, err)),
				)
				continue
			}
			_ = f.hub.Publish(ctx, ev)
		}
	}
}

// Close releases the shared Redis subscription and closes every local
// subscriber. Safe to call multiple times.
func (f *RedisFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	ps, cancel, done := f.pubsub, f.cancel, f.done
	f.mu.Unlock()

	var err error
	if ps != nil {
		cancel()
		err = ps.Close()
		<-done
	}
	return errors.Join(err, f.hub.Close())
}
