package loadcheck

import "errors"

// Sentinel errors of a load check run.
var (
	ErrUnhealthy = errors.New("service unhealthy")
	ErrRequest   = errors.New("request failed")
	ErrMismatch  = errors.New("published results differ from local results")
	ErrNoWork    = errors.New("fixture has no unlocked event with participants")
)
