package catalog

import "errors"

var (
	ErrUnknownPlan      = errors.New("catalog: unknown plan type")
	ErrFeatureNotFound  = errors.New("catalog: feature not found")
	ErrInvalidCatalog   = errors.New("catalog: invalid catalog configuration")
	ErrDuplicateFeature = errors.New("catalog: duplicate feature name")
	ErrFailedToLoad     = errors.New("catalog: failed to load catalog")
)
