package identity

import "errors"

// Sentinel kinds for identity errors.
var (
	ErrUnauthenticated    = errors.New("missing or invalid token")
	ErrForbidden          = errors.New("identity may not perform this action")
	ErrProfileUnavailable = errors.New("profile lookup failed")
)
