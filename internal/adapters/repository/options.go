package repository

import "github.com/google/uuid"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithIDFunc overrides how change ids are minted.
func WithIDFunc(fn func() string) Option {
	return func(s *MemoryStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewChangeID mints a change id.
func NewChangeID() string {
	return uuid.NewString()
}
