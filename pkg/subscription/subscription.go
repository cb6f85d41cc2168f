package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/medtrack-app/entitlements/pkg/catalog"
)

// Status represents the lifecycle state of a subscription record.
type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCanceled, StatusExpired:
		return true
	default:
		return false
	}
}

// Subscription is a user's paid plan. A user has at most one current subscription.
// Records are never deleted; cancel and expiry are status transitions.
type Subscription struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	PlanType  catalog.PlanType `json:"plan_type"`
	Status    Status           `json:"status"`
	StartedAt time.Time        `json:"started_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// IsCurrentAt reports whether the subscription grants its plan at the given time.
// The stored status may lag wall-clock expiry, so both the status and the
// expiry timestamp are checked.
func (s *Subscription) IsCurrentAt(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.Status == StatusActive && now.Before(s.ExpiresAt)
}

// IsStaleAt reports whether the record still says active although it has expired.
func (s *Subscription) IsStaleAt(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.Status == StatusActive && !now.Before(s.ExpiresAt)
}

// CurrentPlanAt returns the plan the subscription grants at the given time, or nil.
func (s *Subscription) CurrentPlanAt(now time.Time) *catalog.PlanType {
	if !s.IsCurrentAt(now) {
		return nil
	}
	plan := s.PlanType
	return &plan
}

// FeatureTrial records that a user consumed the one-time trial of a feature.
// At most one exists per (UserID, FeatureName); it is never modified or removed.
type FeatureTrial struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	FeatureName string    `json:"feature_name"`
	UsedAt      time.Time `json:"used_at"`
}

// TrialStatus describes the time-boxed trial period of a user.
type TrialStatus struct {
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// trialStatusAt builds a TrialStatus from a stored expiry.
func trialStatusAt(expiresAt *time.Time, now time.Time) TrialStatus {
	if expiresAt == nil {
		return TrialStatus{}
	}
	exp := expiresAt.UTC()
	return TrialStatus{IsActive: now.Before(exp), ExpiresAt: &exp}
}
