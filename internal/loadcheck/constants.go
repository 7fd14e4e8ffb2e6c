package loadcheck

import "time"

// Defaults applied by Normalize.
const (
	DefaultWorkers  = 8
	DefaultResubmit = 0.25
	DefaultTimeout  = 10 * time.Second

	tokenTTL                = time.Hour
	workerChannelMultiplier = 2
	settleDelay             = 500 * time.Millisecond
	aggregateTolerance      = 1e-6
	maxQuizItems            = 10
	maxDeduction            = 5
	percentageMultiplier    = 100
)

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Resubmit < 0 {
		c.Resubmit = 0
	}
	if c.Resubmit > 1 {
		c.Resubmit = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
}
