// Package service wires the store, the dataset, the submission gate, the
// change feed and the engines into the operations the HTTP API serves.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/tally/internal/adapters/feed"
	"github.com/okian/tally/internal/adapters/feed/pgnotify"
	workerpool "github.com/okian/tally/internal/adapters/mq/worker"
	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/dataset"
	"github.com/okian/tally/internal/domain/dedupe"
	"github.com/okian/tally/internal/domain/identity"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/ranking"
	"github.com/okian/tally/internal/domain/standings"
	"github.com/okian/tally/internal/domain/submission"
	"github.com/okian/tally/internal/domain/types"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

var tracer = otel.Tracer("github.com/okian/tally/internal/app")

const listenerShutdownTimeout = 5 * time.Second

// Service implements the API dependencies for the scoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	data     *dataset.Dataset
	bus      *feed.Bus
	listener *workerpool.Listener
	bridge   *pgnotify.Bridge
	gate     *submission.Gate
	resolver *identity.Resolver
	loader   *Loader

	// Configuration
	districts          []string
	dedupeSize         int
	feedBufferSize     int
	initialLoadTimeout time.Duration
	jwtSecret          string
	notifyDSN          string
	notifyChannel      string

	// State
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	loadMu   sync.Mutex // serializes loads
	reportMu sync.RWMutex
	lastLoad LoadReport

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		data:               dataset.New(),
		dedupeSize:         100_000,
		feedBufferSize:     1024,
		initialLoadTimeout: 5 * time.Second,
		jwtSecret:          "change-me",
		notifyChannel:      "score_changes",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires the components, subscribes the listener and runs the initial
// load. It waits for the load at most the initial load timeout; a slower
// load keeps running and fills the dataset when it completes.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting scoring service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.bus = feed.NewBus(feed.WithBufferSize(s.feedBufferSize), feed.WithLogger(s.logger.Named("feed")))
	s.listener = workerpool.NewListener(s.bus, s.data,
		dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize)),
		workerpool.WithLogger(s.logger),
	)
	if err := s.listener.Start(runCtx); err != nil {
		cancel()
		_ = s.bus.Close()
		return fmt.Errorf("service.Start: %w", err)
	}
	s.gate = submission.NewGate(s.store, s.data,
		submission.WithPublisher(s.bus),
		submission.WithLogger(s.logger.Named("gate")),
	)
	s.resolver = identity.NewResolver(s.jwtSecret, s.store, identity.WithLogger(s.logger.Named("identity")))
	s.loader = NewLoader(s.store, s.data, s.logger.Named("loader"))

	if s.notifyDSN != "" {
		s.bridge = pgnotify.New(s.notifyDSN, s.store, s.bus,
			pgnotify.WithChannel(s.notifyChannel),
			pgnotify.WithLogger(s.logger.Named("pgnotify")),
		)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = s.bridge.Run(runCtx)
		}()
	}

	s.cancel = cancel
	s.started = true

	done := make(chan LoadReport, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		done <- s.load(runCtx)
	}()

	timer := time.NewTimer(s.initialLoadTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		s.logger.Warn(ctx, "initial load still running, continuing startup", logger.Duration("timeout", s.initialLoadTimeout))
	case <-ctx.Done():
		s.logger.Warn(ctx, "stopped waiting for initial load", logger.Error(ctx.Err()))
	}

	s.logger.Info(ctx, "scoring service started",
		logger.Int("districts", len(s.districts)),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("crossProcessFeed", s.bridge != nil),
	)
	return nil
}

// Stop gracefully shuts down the service. The store is owned by the caller
// and stays open.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service...")

	sctx, cancel := context.WithTimeout(ctx, listenerShutdownTimeout)
	defer cancel()
	if err := s.listener.Shutdown(sctx); err != nil {
		s.logger.Warn(ctx, "listener shutdown", logger.Error(err))
	}
	s.cancel()
	s.wg.Wait()
	if err := s.bus.Close(); err != nil {
		s.logger.Warn(ctx, "closing feed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

func (s *Service) load(ctx context.Context) LoadReport {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	r := s.loader.Load(ctx)
	s.reportMu.Lock()
	s.lastLoad = r
	s.reportMu.Unlock()
	return r
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Refresh re-runs the bulk load. Collections that fail keep their previous
// content; the report names them and the returned error wraps ErrPartialLoad.
func (s *Service) Refresh(ctx context.Context) (LoadReport, error) {
	if err := s.running(); err != nil {
		return LoadReport{}, err
	}
	r := s.load(ctx)
	return r, r.Err()
}

// LastLoad returns the report of the most recent completed load.
func (s *Service) LastLoad() LoadReport {
	s.reportMu.RLock()
	defer s.reportMu.RUnlock()
	return s.lastLoad
}

// SubmitScore admits a judge's score through the submission gate.
func (s *Service) SubmitScore(ctx context.Context, req submission.Request) (submission.Result, error) {
	if err := s.running(); err != nil {
		return submission.Result{}, err
	}
	return s.gate.Submit(ctx, req)
}

// Resolve returns the identity behind a bearer token.
func (s *Service) Resolve(ctx context.Context, token string) (identity.Identity, error) {
	if err := s.running(); err != nil {
		return identity.Identity{}, err
	}
	return s.resolver.Resolve(ctx, token)
}

// RankEvent ranks one event from the current dataset.
func (s *Service) RankEvent(ctx context.Context, eventID string) (types.EventRanking, error) {
	_, span := tracer.Start(ctx, "service.RankEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", eventID))

	event, ok := s.data.Event(eventID)
	if !ok {
		return types.EventRanking{}, fmt.Errorf("service.RankEvent %q: %w", eventID, repository.ErrNotFound)
	}
	start := time.Now()
	r := ranking.Ranking(event, s.data.ParticipantsByEvent(eventID), s.data.ScoresByEvent(eventID))
	metrics.RecordRankingLatency(float64(time.Since(start).Microseconds()) / 1000)
	span.SetAttributes(attribute.Int("ranking.rows", len(r.Rows)))
	return r, nil
}

// ComputeStandings derives the regional standings from the current dataset.
func (s *Service) ComputeStandings(ctx context.Context) types.Standings {
	_, span := tracer.Start(ctx, "service.ComputeStandings")
	defer span.End()

	start := time.Now()
	st := standings.Compute(s.data.Events(), s.data.Participants(), s.data.Scores(), s.Districts())
	metrics.RecordStandingsLatency(float64(time.Since(start).Microseconds()) / 1000)
	span.SetAttributes(attribute.Int("standings.events", len(st.Events)), attribute.Int("standings.districts", len(st.Rows)))
	return st
}

// Rankings ranks every event in stored order.
func (s *Service) Rankings(ctx context.Context) []types.EventRanking {
	events := s.data.Events()
	out := make([]types.EventRanking, 0, len(events))
	for _, e := range events {
		if r, err := s.RankEvent(ctx, e.ID); err == nil {
			out = append(out, r)
		}
	}
	return out
}

// Events returns every event of the dataset.
func (s *Service) Events() []model.Event {
	return s.data.Events()
}

// Districts returns the fixed district roster.
func (s *Service) Districts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.districts...)
}

// SetEventLocked locks or unlocks an event and reloads the events.
func (s *Service) SetEventLocked(ctx context.Context, eventID string, locked bool) (model.Event, error) {
	if err := s.running(); err != nil {
		return model.Event{}, err
	}
	if err := s.store.SetEventLocked(ctx, eventID, locked); err != nil {
		return model.Event{}, fmt.Errorf("service.SetEventLocked: %w", err)
	}
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return model.Event{}, fmt.Errorf("service.SetEventLocked: %w", err)
	}
	s.data.SetEvents(events)
	e, ok := s.data.Event(eventID)
	if !ok {
		return model.Event{}, fmt.Errorf("service.SetEventLocked %q: %w", eventID, repository.ErrNotFound)
	}
	s.logger.Info(ctx, "event lock changed", logger.String("event", eventID), logger.Bool("locked", locked))
	return e, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := s.data.Counts()
	stats := map[string]interface{}{
		"started":    s.started,
		"districts":  len(s.districts),
		"dedupeSize": s.dedupeSize,
		"dataset":    counts,
		"lastLoad":   s.LastLoad(),
	}
	if s.listener != nil {
		stats["dedupeSeen"] = s.listener.Seen()
	}
	if allow, ok := s.data.Setting(model.SettingAllowAdminSignup); ok {
		stats["allowAdminSignup"] = allow == "true"
	}

	metrics.UpdateDatasetRecords(dataset.CollectionEvents, counts.Events)
	metrics.UpdateDatasetRecords(dataset.CollectionParticipants, counts.Participants)
	metrics.UpdateDatasetRecords(dataset.CollectionScores, counts.Scores)
	return stats
}
