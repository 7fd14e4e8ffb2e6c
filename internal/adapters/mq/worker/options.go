package worker

import (
	"github.com/okian/tally/pkg/logger"
)

// Option applies a configuration option to the Listener.
type Option func(*Listener)

// WithName sets the listener name for identification and logging.
func WithName(name string) Option {
	return func(l *Listener) {
		if name != "" {
			l.name = name
		}
	}
}

// WithLogger sets a custom logger for the listener.
func WithLogger(logger logger.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}
