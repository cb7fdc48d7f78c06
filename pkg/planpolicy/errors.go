package planpolicy

import "errors"

var (
	ErrUnknownPlan        = errors.New("planpolicy: unknown plan")
	ErrInvalidPolicy      = errors.New("planpolicy: invalid plan policy configuration")
	ErrFailedToLoadPolicy = errors.New("planpolicy: failed to load plan policy")
)
