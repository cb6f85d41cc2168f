package changefeed

import (
	"context"
	"sync"
)

// MemoryFeed delivers events in-process.
// A subscriber whose buffer is full misses the event and is dropped.
type MemoryFeed struct {
	subscribers map[*subscriber]struct{}
	bufferSize  int
	closed      bool
	mu          sync.RWMutex
	cleanupWg   sync.WaitGroup
}

// NewMemoryFeed creates an in-process feed. bufferSize is clamped to at least 1.
func NewMemoryFeed(bufferSize int) *MemoryFeed {
	return &MemoryFeed{
		subscribers: make(map[*subscriber]struct{}),
		bufferSize:  max(bufferSize, 1),
	}
}

// Subscribe registers a subscriber that is removed when ctx is cancelled.
// On a closed feed it returns an already-closed subscriber.
func (f *MemoryFeed) Subscribe(ctx context.Context) Subscriber {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := newSubscriber(f.bufferSize)
	if f.closed {
		_ = sub.Close()
		return sub
	}
	f.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		f.cleanupWg.Add(1)
		go func() {
			defer f.cleanupWg.Done()
			<-ctx.Done()
			f.unsubscribe(sub)
		}()
	}

	return sub
}

// Publish sends ev to every subscriber without blocking.
func (f *MemoryFeed) Publish(_ context.Context, ev Event) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return ErrFeedClosed
	}

	for sub := range f.subscribers {
		if !sub.send(ev) {
			go f.unsubscribe(sub)
		}
	}
	return nil
}

// Close closes all subscribers. Safe to call multiple times.
func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	for sub := range f.subscribers {
		_ = sub.Close()
	}
	clear(f.subscribers)
	f.mu.Unlock()

	f.cleanupWg.Wait()
	return nil
}

func (f *MemoryFeed) unsubscribe(sub *subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.subscribers, sub)
	_ = sub.Close()
}
