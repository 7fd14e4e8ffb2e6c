package bunstore

import "github.com/okian/tally/pkg/logger"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithNotifyChannel sets the Postgres channel score changes are announced on.
func WithNotifyChannel(channel string) Option {
	return func(s *Store) {
		if channel != "" {
			s.notifyChannel = channel
		}
	}
}

// WithIDFunc overrides how change ids are minted.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets the logger used to report skipped rows.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}
