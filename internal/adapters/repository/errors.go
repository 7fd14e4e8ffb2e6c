package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("record not found")
	ErrEventLocked    = errors.New("event is locked")
	ErrDuplicateScore = errors.New("score id already belongs to another judge and participant")
	ErrClosed         = errors.New("store closed")
)
