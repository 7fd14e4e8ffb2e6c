package feed

import "github.com/okian/tally/pkg/logger"

// Option applies a configuration option to the Bus.
type Option func(*Bus)

// WithBufferSize sets the per-subscriber output buffer.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = int64(n)
		}
	}
}

// WithLogger sets the logger watermill reports through.
func WithLogger(l logger.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}
