package entitlement

import "errors"

var (
	ErrNoUser             = errors.New("entitlement: no signed-in user")
	ErrSessionMismatch    = errors.New("entitlement: user does not own the loaded session")
	ErrNotLoaded          = errors.New("entitlement: entitlements not loaded yet")
	ErrLoadFailed         = errors.New("entitlement: failed to load entitlements")
	ErrLoadSuperseded     = errors.New("entitlement: load superseded by a newer one")
	ErrUnknownFeature     = errors.New("entitlement: unknown feature")
	ErrInvalidPlan        = errors.New("entitlement: invalid plan")
	ErrTrialRecordFailed  = errors.New("entitlement: failed to record feature trial")
	ErrPlanChangeFailed   = errors.New("entitlement: failed to change plan")
	ErrCancelFailed       = errors.New("entitlement: failed to cancel subscription")
	ErrTrialStartFailed   = errors.New("entitlement: failed to start trial period")
	ErrUsageNotConfigured = errors.New("entitlement: usage limiter not configured")
	ErrSessionsClosed     = errors.New("entitlement: session registry closed")
)
