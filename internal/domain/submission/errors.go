package submission

import "errors"

// Sentinel kinds for rejected submissions. Neither mutates local state.
var (
	ErrLockedEvent = errors.New("event is locked")
	ErrValidation  = errors.New("submission rejected")
)
