// Package metrics provides Prometheus metrics for the tally scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes used as label values.
const (
	OutcomeAccepted   = "accepted"
	OutcomeReplaced   = "replaced"
	OutcomeLocked     = "locked"
	OutcomeInvalid    = "invalid"
	OutcomeDuplicate  = "duplicate"
	OutcomeStoreError = "store_error"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Submission gate
	submissions       *prometheus.CounterVec
	submissionLatency prometheus.Histogram

	// Reconciliation listener
	reconcileApplied    prometheus.Counter
	reconcileDuplicates prometheus.Counter
	reconcileRejected   *prometheus.CounterVec
	dedupeIDs           prometheus.Gauge

	// Engines
	rankingLatency   prometheus.Histogram
	standingsLatency prometheus.Histogram

	// Bulk load and identity
	fetchFailures     *prometheus.CounterVec
	loadDuration      prometheus.Histogram
	identityFallbacks prometheus.Counter

	// Dataset
	datasetRecords *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

func init() { //nolint:gochecknoinits // metrics must exist before any component records
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tally",
		subsystem:        "scoring",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submissions_total",
		Help:        "Score submissions by outcome",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.submissionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submission_latency_milliseconds",
		Help:        "Latency of score submissions including the store write",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.reconcileApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reconcile_applied_total",
		Help:        "Score change notifications merged into the local dataset",
		ConstLabels: m.constLabels,
	})

	m.reconcileDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reconcile_duplicates_total",
		Help:        "Score change notifications dropped because their change id was already seen",
		ConstLabels: m.constLabels,
	})

	m.reconcileRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reconcile_rejected_total",
		Help:        "Score change notifications that could not be applied",
		ConstLabels: m.constLabels,
	}, []string{"reason"})

	m.rankingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ranking_latency_milliseconds",
		Help:        "Time spent ranking a single event",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.standingsLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "standings_latency_milliseconds",
		Help:        "Time spent computing the regional standings",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.fetchFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_failures_total",
		Help:        "Bulk load fetch failures per collection",
		ConstLabels: m.constLabels,
	}, []string{"collection"})

	m.loadDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "load_duration_milliseconds",
		Help:        "Duration of a full bulk load",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.identityFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "identity_fallbacks_total",
		Help:        "Identities synthesized from token claims because the profile lookup failed",
		ConstLabels: m.constLabels,
	})

	m.dedupeIDs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reconcile_dedupe_ids",
		Help:        "Change ids remembered by the reconciliation deduper",
		ConstLabels: m.constLabels,
	})

	m.datasetRecords = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dataset_records",
		Help:        "Records held in the in-memory dataset per collection",
		ConstLabels: m.constLabels,
	}, []string{"collection"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request latency",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status"})
}

// RecordSubmission counts a submission with its outcome and latency.
func RecordSubmission(outcome string, latencyMs float64) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
	globalManager.submissionLatency.Observe(latencyMs)
}

// RecordReconcileApplied counts a merged change notification.
func RecordReconcileApplied() {
	globalManager.reconcileApplied.Inc()
}

// RecordReconcileDuplicate counts a change notification that was already seen.
func RecordReconcileDuplicate() {
	globalManager.reconcileDuplicates.Inc()
}

// RecordReconcileRejected counts a change notification that could not be applied.
func RecordReconcileRejected(reason string) {
	globalManager.reconcileRejected.WithLabelValues(reason).Inc()
}

// UpdateDedupeIDs sets the number of change ids the deduper remembers.
func UpdateDedupeIDs(n int64) {
	globalManager.dedupeIDs.Set(float64(n))
}

// RecordRankingLatency records the time taken to rank an event.
func RecordRankingLatency(latencyMs float64) {
	globalManager.rankingLatency.Observe(latencyMs)
}

// RecordStandingsLatency records the time taken to compute standings.
func RecordStandingsLatency(latencyMs float64) {
	globalManager.standingsLatency.Observe(latencyMs)
}

// RecordFetchFailure counts a failed bulk fetch for a collection.
func RecordFetchFailure(collection string) {
	globalManager.fetchFailures.WithLabelValues(collection).Inc()
}

// RecordLoadDuration records the duration of a bulk load.
func RecordLoadDuration(latencyMs float64) {
	globalManager.loadDuration.Observe(latencyMs)
}

// RecordIdentityFallback counts a degraded identity.
func RecordIdentityFallback() {
	globalManager.identityFallbacks.Inc()
}

// UpdateDatasetRecords sets the record count of a dataset collection.
func UpdateDatasetRecords(collection string, count int) {
	globalManager.datasetRecords.WithLabelValues(collection).Set(float64(count))
}

// RecordHTTPRequest records an HTTP request and its latency.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
