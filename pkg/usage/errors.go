package usage

import "errors"

var (
	ErrMissingUserID          = errors.New("usage: missing user id")
	ErrUnknownFeatureType     = errors.New("usage: unknown feature type")
	ErrLimitNotConfigured     = errors.New("usage: no limit configured for plan and feature type")
	ErrInvalidLimits          = errors.New("usage: invalid limits configuration")
	ErrFailedToReadUsage      = errors.New("usage: failed to read usage counter")
	ErrFailedToIncrementUsage = errors.New("usage: failed to increment usage counter")
)
