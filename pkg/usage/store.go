package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store persists monthly counters.
type Store interface {
	// Get returns the counter value, or 0 when the key does not exist.
	Get(ctx context.Context, key string) (int64, error)
	// Increment adds one to the counter and makes it expire at expireAt.
	Increment(ctx context.Context, key string, expireAt time.Time) (int64, error)
}

// Period returns the UTC calendar-month key ("2025-03") for t.
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PeriodEnd returns the first instant of the month following t, in UTC.
func PeriodEnd(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// Key builds the counter key for a user, feature type and period.
func Key(userID uuid.UUID, ft FeatureType, period string) string {
	return fmt.Sprintf("usage:%s:%s:%s", userID, ft, period)
}
