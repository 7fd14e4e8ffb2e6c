package pgnotify

import (
	"time"

	"github.com/okian/tally/pkg/logger"
)

// Option applies a configuration option to the Bridge.
type Option func(*Bridge)

// WithChannel sets the LISTEN channel.
func WithChannel(channel string) Option {
	return func(b *Bridge) {
		if channel != "" {
			b.channel = channel
		}
	}
}

// WithReconnectDelay sets the pause between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.reconnectDelay = d
		}
	}
}

// WithLogger sets the bridge logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}
