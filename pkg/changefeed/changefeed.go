package changefeed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names the type of change that happened to a user's entitlement data.
type Kind string

const (
	KindSubscriptionChanged Kind = "subscription_changed"
	KindTrialRecorded       Kind = "trial_recorded"
	KindTrialPeriodChanged  Kind = "trial_period_changed"
)

// Event notifies listeners that a user's entitlement data changed.
// Events carry no state: receivers re-read from the repository.
type Event struct {
	Kind    Kind      `json:"kind"`
	UserID  uuid.UUID `json:"user_id"`
	Feature string    `json:"feature,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher emits change events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber receives change events until closed.
// Implementations must be safe for concurrent use.
type Subscriber interface {
	// Events returns the receive channel. It is closed when the subscriber closes.
	Events() <-chan Event

	// Close releases the subscription. Idempotent.
	Close() error
}

// Source creates subscriptions. The subscription ends when ctx is cancelled.
type Source interface {
	Subscribe(ctx context.Context) Subscriber
}

// Feed is a Publisher and a Source.
// Delivery is best-effort: slow consumers lose events rather than block publishers.
type Feed interface {
	Publisher
	Source
	Close() error
}

type subscriber struct {
	ch     chan Event
	closed bool
	mu     sync.RWMutex
}

func newSubscriber(bufferSize int) *subscriber {
	return &subscriber{ch: make(chan Event, bufferSize)}
}

func (s *subscriber) Events() <-chan Event {
	return s.ch
}

func (s *subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

func (s *subscriber) send(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}
