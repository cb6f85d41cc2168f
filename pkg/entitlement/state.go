package entitlement

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack-app/entitlements/pkg/subscription"
	"github.com/medtrack-app/entitlements/pkg/trial"
)

// State is the entitlement snapshot of one signed-in user.
// Snapshots handed out by the Engine are copies and safe to keep.
type State struct {
	UserID         uuid.UUID                   `json:"user_id"`
	Subscription   *subscription.Subscription  `json:"subscription"`
	Trials         []subscription.FeatureTrial `json:"feature_trials"`
	IsTrialActive  bool                        `json:"is_trial_active"`
	TrialExpiresAt *time.Time                  `json:"trial_expires_at"`
	TrialRemaining string                      `json:"trial_time_remaining,omitempty"`
	IsLoading      bool                        `json:"is_loading"`
	LoadedAt       *time.Time                  `json:"loaded_at,omitempty"`
}

func (s State) clone() State {
	out := s
	if s.Subscription != nil {
		sub := *s.Subscription
		out.Subscription = &sub
	}
	if s.TrialExpiresAt != nil {
		exp := *s.TrialExpiresAt
		out.TrialExpiresAt = &exp
	}
	if s.LoadedAt != nil {
		at := *s.LoadedAt
		out.LoadedAt = &at
	}
	out.Trials = slices.Clone(s.Trials)
	return out
}

// applyTrial derives the countdown fields from TrialExpiresAt at now.
func applyTrial(st *State, now time.Time) {
	if st.TrialExpiresAt == nil {
		st.IsTrialActive = false
		st.TrialRemaining = ""
		return
	}
	remaining := st.TrialExpiresAt.Sub(now)
	st.IsTrialActive = remaining > 0
	st.TrialRemaining = trial.FormatRemaining(remaining)
}
