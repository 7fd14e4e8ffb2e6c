// Package loadcheck drives a running tally service with concurrent judge
// submissions and checks the published rankings and standings against
// results computed locally from the same fixture.
package loadcheck

import "time"

// Config holds configuration for a load check run.
type Config struct {
	BaseURL   string        // Base URL of the service
	SeedFile  string        // Fixture the service was seeded with
	JWTSecret string        // Secret the service verifies tokens with
	Districts []string      // Roster override; the fixture roster when empty
	Workers   int           // Number of concurrent workers
	Rate      float64       // Submissions per second, 0 for unlimited
	Burst     int           // Limiter burst
	Resubmit  float64       // Share of submissions sent a second time with new entries
	Timeout   time.Duration // HTTP request timeout
	RandSeed  uint64        // Seed of the data generator, 0 for random
	Verbose   bool          // Log every failed request
}

// Stats holds run statistics.
type Stats struct {
	Planned     int
	Submitted   int
	Accepted    int
	Replaced    int
	Failed      int
	Resubmitted int
	Events      int
	Mismatches  int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
