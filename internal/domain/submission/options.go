package submission

import "github.com/okian/tally/pkg/logger"

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithPublisher sets where accepted changes are announced.
func WithPublisher(p Publisher) Option {
	return func(g *Gate) {
		if p != nil {
			g.pub = p
		}
	}
}

// WithScoreIDFunc overrides how new score ids are minted.
func WithScoreIDFunc(fn func() string) Option {
	return func(g *Gate) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// WithLogger sets a custom logger for the gate.
func WithLogger(l logger.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}
