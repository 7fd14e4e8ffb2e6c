package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrPartialLoad = errors.New("some collections failed to load")
)
