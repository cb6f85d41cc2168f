package subscription

import "errors"

var (
	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrInvalidPlan            = errors.New("invalid subscription plan")
	ErrMissingUserID          = errors.New("user ID is required")
	ErrMissingFeatureName     = errors.New("feature name is required")
	ErrRepositoryUnavailable  = errors.New("subscription repository unavailable")
	ErrTrialPeriodUnsupported = errors.New("repository does not support trial periods")

	ErrFailedToFetchSubscription = errors.New("failed to fetch subscription")
	ErrFailedToFetchTrials       = errors.New("failed to fetch feature trials")
	ErrFailedToFetchTrialStatus  = errors.New("failed to fetch trial status")
	ErrFailedToRecordTrial       = errors.New("failed to record feature trial")
	ErrFailedToSaveSubscription  = errors.New("failed to save subscription")
	ErrFailedToStartTrial        = errors.New("failed to start trial period")
)
