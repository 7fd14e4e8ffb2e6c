package service

import (
	"time"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the record store. The caller keeps ownership and closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDistricts sets the fixed district roster of the region.
func WithDistricts(districts []string) Option {
	return func(s *Service) {
		s.districts = append([]string(nil), districts...)
	}
}

// WithDedupeSize sets the size of the change id deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithFeedBufferSize sets the per-subscriber buffer of the change feed.
func WithFeedBufferSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.feedBufferSize = size
		}
	}
}

// WithInitialLoadTimeout bounds how long Start waits for the first load.
func WithInitialLoadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.initialLoadTimeout = d
		}
	}
}

// WithJWTSecret sets the secret bearer tokens are verified with.
func WithJWTSecret(secret string) Option {
	return func(s *Service) {
		if secret != "" {
			s.jwtSecret = secret
		}
	}
}

// WithNotifyDSN enables the Postgres notification bridge on channel.
func WithNotifyDSN(dsn, channel string) Option {
	return func(s *Service) {
		s.notifyDSN = dsn
		if channel != "" {
			s.notifyChannel = channel
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
