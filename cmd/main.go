package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/tally/internal/adapters/http/api"
	"github.com/okian/tally/internal/adapters/http/swagger"
	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/adapters/repository/bunstore"
	"github.com/okian/tally/internal/adapters/repository/bunstore/migrations"
	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/config"
	"github.com/okian/tally/internal/domain/fixture"
	"github.com/okian/tally/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "tally exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "closing store", logger.Error(err))
		}
	}()

	districts, err := seedStore(ctx, cfg, store)
	if err != nil {
		return err
	}
	if len(districts) > 0 {
		log.Info(ctx, "seeded store", logger.String("file", cfg.SeedFile), logger.Int("districts", len(districts)))
	}
	if len(cfg.Districts) > 0 {
		districts = cfg.Districts
	}

	svc := service.New(serviceOptions(cfg, store, districts, log)...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// openStore builds the configured record store. SQL stores are migrated
// before use.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	case config.DriverSQLite, config.DriverPostgres:
		driver := bunstore.DriverSQLite
		if cfg.StoreDriver == config.DriverPostgres {
			driver = bunstore.DriverPostgres
		}
		store, err := bunstore.Open(ctx, driver, cfg.StoreDSN,
			bunstore.WithNotifyChannel(cfg.NotifyChannel),
			bunstore.WithLogger(log.Named("bunstore")),
		)
		if err != nil {
			return nil, err
		}
		group, err := migrations.Apply(ctx, store.DB())
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if group != 0 {
			log.Info(ctx, "applied migrations", logger.Int("group", int(group)))
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

// seedStore loads the configured fixture into store and returns its
// district roster. Without a seed file it does nothing.
func seedStore(ctx context.Context, cfg *config.Config, store repository.Seeder) ([]string, error) {
	if cfg.SeedFile == "" {
		return nil, nil
	}
	f, err := fixture.Load(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	seed, err := f.Seed()
	if err != nil {
		return nil, err
	}
	if err := store.Seed(ctx, seed); err != nil {
		return nil, fmt.Errorf("seed store: %w", err)
	}
	return f.Districts, nil
}

func serviceOptions(cfg *config.Config, store repository.Store, districts []string, log logger.Logger) []service.Option {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithStore(store),
		service.WithDistricts(districts),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithFeedBufferSize(cfg.FeedBufferSize),
		service.WithInitialLoadTimeout(cfg.InitialLoadTimeout()),
		service.WithJWTSecret(cfg.JWTSecret),
	}
	if cfg.StoreDriver == config.DriverPostgres {
		opts = append(opts, service.WithNotifyDSN(cfg.StoreDSN, cfg.NotifyChannel))
	}
	return opts
}

func newRouter(ctx context.Context, svc *service.Service, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	swagger.Register(ctx, r)
	api.NewServer(svc, svc, api.WithLogger(log.Named("api"))).Register(ctx, r)
	return r
}

// startServiceMetricsUpdater refreshes the dataset gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats()
		}
	}
}
