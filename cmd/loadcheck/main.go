package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/tally/internal/loadcheck"
	"github.com/okian/tally/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		seedFile  = flag.String("seed", "", "Fixture the service was seeded with (required)")
		secret    = flag.String("secret", "change-me", "JWT secret of the service")
		districts = flag.String("districts", "", "Comma separated district roster (default: fixture roster)")
		workers   = flag.Int("workers", loadcheck.DefaultWorkers, "Number of concurrent workers")
		rps       = flag.Float64("rate", 0, "Submissions per second, 0 for unlimited")
		burst     = flag.Int("burst", 1, "Rate limiter burst")
		resubmit  = flag.Float64("resubmit", loadcheck.DefaultResubmit, "Share of submissions resent with new entries")
		timeout   = flag.Duration("timeout", loadcheck.DefaultTimeout, "HTTP request timeout")
		randSeed  = flag.Uint64("rand-seed", 0, "Data generator seed, 0 for random")
		level     = flag.String("log-level", "info", "Log level")
		verbose   = flag.Bool("verbose", false, "Log every failed submission")
	)
	flag.Parse()

	if *seedFile == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString(*level)
	log := logger.Named("loadcheck")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &loadcheck.Config{
		BaseURL:   strings.TrimRight(*baseURL, "/"),
		SeedFile:  *seedFile,
		JWTSecret: *secret,
		Workers:   *workers,
		Rate:      *rps,
		Burst:     *burst,
		Resubmit:  *resubmit,
		Timeout:   *timeout,
		RandSeed:  *randSeed,
		Verbose:   *verbose,
	}
	if *districts != "" {
		for _, d := range strings.Split(*districts, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.Districts = append(cfg.Districts, d)
			}
		}
	}

	if _, err := loadcheck.Run(ctx, cfg, log); err != nil {
		log.Error(ctx, "load check failed", logger.Error(err))
		os.Exit(1)
	}
}
