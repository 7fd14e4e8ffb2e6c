package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/dataset"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// LoadReport describes one bulk load.
type LoadReport struct {
	Loaded   map[string]int    `json:"loaded"`
	Failed   map[string]string `json:"failed,omitempty"`
	Started  time.Time         `json:"started"`
	Duration time.Duration     `json:"duration"`
}

// Err returns ErrPartialLoad naming the failed collections, or nil.
func (r LoadReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Failed))
	for name := range r.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("%w: %s", ErrPartialLoad, strings.Join(names, ", "))
}

// Loader fetches every collection from the store into the dataset.
type Loader struct {
	store  repository.Store
	data   *dataset.Dataset
	logger logger.Logger
}

// NewLoader creates a loader.
func NewLoader(store repository.Store, data *dataset.Dataset, log logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{store: store, data: data, logger: log}
}

type fetch struct {
	collection string
	run        func(ctx context.Context) (int, error)
}

func (l *Loader) fetches() []fetch {
	return []fetch{
		{dataset.CollectionEvents, func(ctx context.Context) (int, error) {
			v, err := l.store.ListEvents(ctx)
			if err == nil {
				l.data.SetEvents(v)
			}
			return len(v), err
		}},
		{dataset.CollectionParticipants, func(ctx context.Context) (int, error) {
			v, err := l.store.ListParticipants(ctx)
			if err == nil {
				l.data.SetParticipants(v)
			}
			return len(v), err
		}},
		{dataset.CollectionScores, func(ctx context.Context) (int, error) {
			v, err := l.store.ListScores(ctx)
			if err == nil {
				l.data.SetScores(v)
			}
			return len(v), err
		}},
		{dataset.CollectionProfiles, func(ctx context.Context) (int, error) {
			v, err := l.store.ListProfiles(ctx)
			if err == nil {
				l.data.SetProfiles(v)
			}
			return len(v), err
		}},
		{dataset.CollectionSettings, func(ctx context.Context) (int, error) {
			v, err := l.store.ListSettings(ctx)
			if err == nil {
				l.data.SetSettings(v)
			}
			return len(v), err
		}},
	}
}

// Load fetches the five collections concurrently. A failed fetch leaves its
// collection as it was and never cancels the others.
func (l *Loader) Load(ctx context.Context) LoadReport {
	ctx, span := tracer.Start(ctx, "service.Load")
	defer span.End()

	report := LoadReport{Loaded: map[string]int{}, Started: time.Now()}
	var mu sync.Mutex
	var g errgroup.Group
	for _, f := range l.fetches() {
		g.Go(func() error {
			n, err := f.run(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if report.Failed == nil {
					report.Failed = map[string]string{}
				}
				report.Failed[f.collection] = err.Error()
				metrics.RecordFetchFailure(f.collection)
				l.logger.Error(ctx, "collection fetch failed", logger.String("collection", f.collection), logger.Error(err))
				return nil
			}
			report.Loaded[f.collection] = n
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(report.Started)
	metrics.RecordLoadDuration(float64(report.Duration.Milliseconds()))
	c := l.data.Counts()
	metrics.UpdateDatasetRecords(dataset.CollectionEvents, c.Events)
	metrics.UpdateDatasetRecords(dataset.CollectionParticipants, c.Participants)
	metrics.UpdateDatasetRecords(dataset.CollectionScores, c.Scores)
	metrics.UpdateDatasetRecords(dataset.CollectionProfiles, c.Profiles)
	metrics.UpdateDatasetRecords(dataset.CollectionSettings, c.Settings)

	span.SetAttributes(attribute.Int("load.failed", len(report.Failed)))
	if err := report.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		l.logger.Warn(ctx, "bulk load incomplete", logger.Error(err), logger.Duration("took", report.Duration))
	} else {
		l.logger.Info(ctx, "bulk load complete", logger.Any("loaded", report.Loaded), logger.Duration("took", report.Duration))
	}
	return report
}
