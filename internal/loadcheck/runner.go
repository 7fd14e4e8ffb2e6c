package loadcheck

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tally/internal/domain/fixture"
	"github.com/okian/tally/pkg/logger"
)

// Run executes a complete load check against a freshly seeded service.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	cfg.Normalize()
	stats := &Stats{StartTime: time.Now()}

	f, err := fixture.Load(cfg.SeedFile)
	if err != nil {
		return stats, err
	}
	seed, err := f.Seed()
	if err != nil {
		return stats, err
	}
	districts := cfg.Districts
	if len(districts) == 0 {
		districts = f.Districts
	}

	plan, err := NewPlan(seed, cfg.JWTSecret, cfg.RandSeed)
	if err != nil {
		return stats, err
	}
	stats.Planned = len(plan.Submissions)
	log.Info(ctx, "starting tally load check",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("submissions", stats.Planned),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rate", cfg.Rate))

	client := NewClient(cfg.BaseURL, cfg.Timeout, cfg.Rate, cfg.Burst)
	if err := client.Health(ctx); err != nil {
		return stats, err
	}

	ledger := NewLedger(seed)
	submit(ctx, cfg, log, client, ledger, plan.Submissions, stats)
	resubmissions := plan.Resubmissions(cfg.Resubmit)
	stats.Resubmitted = len(resubmissions)
	submit(ctx, cfg, log, client, ledger, resubmissions, stats)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// Let the change feed catch up before reading.
	select {
	case <-ctx.Done():
		return stats, ctx.Err()
	case <-time.After(settleDelay):
	}

	scores := ledger.Scores()
	var diffs []string
	for _, e := range seed.Events {
		r, err := client.Ranking(ctx, e.ID)
		if err != nil {
			return stats, err
		}
		stats.Events++
		diffs = append(diffs, VerifyRanking(seed, scores, r)...)
	}
	st, err := client.Standings(ctx)
	if err != nil {
		return stats, err
	}
	diffs = append(diffs, VerifyStandings(seed, scores, districts, st)...)

	stats.Mismatches = len(diffs)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if len(diffs) > 0 {
		for _, d := range diffs {
			log.Error(ctx, "verification failed", logger.String("diff", d))
		}
		return stats, fmt.Errorf("%w: %d differences", ErrMismatch, len(diffs))
	}
	log.Info(ctx, "load check passed")
	return stats, nil
}

// submit sends subs through a worker pool and records accepted ones in the
// ledger. Each pair appears at most once in subs.
func submit(ctx context.Context, cfg *Config, log logger.Logger, client *Client, ledger *Ledger, subs []Submission, stats *Stats) {
	var submitted, accepted, replaced, failed atomic.Int64

	ch := make(chan Submission, cfg.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range ch {
				submitted.Add(1)
				res, err := client.Submit(ctx, s)
				if err != nil {
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "submission failed",
							logger.String("judge", s.JudgeID),
							logger.String("participant", s.ParticipantID),
							logger.Error(err))
					}
					continue
				}
				ledger.Record(s, res)
				if res.Replaced {
					replaced.Add(1)
				} else {
					accepted.Add(1)
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, s := range subs {
			select {
			case <-ctx.Done():
				return
			case ch <- s:
			}
		}
	}()
	wg.Wait()

	stats.Submitted += int(submitted.Load())
	stats.Accepted += int(accepted.Load())
	stats.Replaced += int(replaced.Load())
	stats.Failed += int(failed.Load())
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Accepted+stats.Replaced) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("planned", stats.Planned),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("replaced", stats.Replaced),
		logger.Int("resubmitted", stats.Resubmitted),
		logger.Int("failed", stats.Failed),
		logger.Int("events", stats.Events),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
