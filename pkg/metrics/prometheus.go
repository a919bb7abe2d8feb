// Package metrics provides Prometheus metrics for the flat-file store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for transaction counters.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Drop reasons for records removed by the decode pipeline.
const (
	DropMalformedUUID = "malformed_uuid"
	DropSchemaTooOld  = "schema_too_old"
	DropBuildFailure  = "build_failure"
	DropDuplicate     = "duplicate"
)

// Manager manages all Prometheus metrics for the store.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Store transactions
	transactions       *prometheus.CounterVec
	transactionLatency *prometheus.HistogramVec
	storedRecords      prometheus.Gauge

	// Record pipeline
	recordsDropped  *prometheus.CounterVec
	recordsRepaired prometheus.Counter
	recordsMigrated *prometheus.CounterVec
	recordsPurged   *prometheus.CounterVec
	recordsConvert  *prometheus.CounterVec

	// Leaderboard snapshots
	leaderboardRebuilds        prometheus.Counter
	leaderboardRebuildDuration prometheus.Histogram
	leaderboardLastUnix        prometheus.Gauge
	leaderboardEntries         prometheus.Gauge

	// HTTP read API
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "flatboard",
		subsystem:        "store",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collector definitions
	auto := promauto.With(m.registry)

	m.transactions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transactions_total",
		Help:      "Store transactions by operation and outcome",
	}, []string{"op", "outcome"})

	m.transactionLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transaction_duration_milliseconds",
		Help:      "Time spent holding the store lock, by operation",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})

	m.storedRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records",
		Help:      "Number of lines in the store after the last full rewrite",
	})

	m.recordsDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_dropped_total",
		Help:      "Records dropped by the decode pipeline, by reason",
	}, []string{"reason"})

	m.recordsRepaired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_repaired_total",
		Help:      "Records with at least one field repaired by the integrity validator",
	})

	m.recordsMigrated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_migrated_total",
		Help:      "Records upgraded by the schema migrator, by the version they predate",
	}, []string{"from_version"})

	m.recordsPurged = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_purged_total",
		Help:      "Records removed by purge operations, by purge kind",
	}, []string{"kind"})

	m.recordsConvert = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_converted_total",
		Help:      "Records streamed to another store, by outcome",
	}, []string{"outcome"})

	m.leaderboardRebuilds = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "leaderboard",
		Name:      "rebuilds_total",
		Help:      "Number of full leaderboard snapshot rebuilds",
	})

	m.leaderboardRebuildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "leaderboard",
		Name:      "rebuild_duration_milliseconds",
		Help:      "Leaderboard snapshot rebuild duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.leaderboardLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "leaderboard",
		Name:      "last_rebuild_unix",
		Help:      "Unix time of the last leaderboard rebuild",
	})

	m.leaderboardEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "leaderboard",
		Name:      "entries",
		Help:      "Players ranked in the power level list of the current snapshot",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

func outcome(ok bool) string {
	if ok {
		return OutcomeOK
	}
	return OutcomeError
}

// Store Metrics Functions.

// RecordTransaction counts one store transaction and its lock hold time.
func RecordTransaction(op string, ok bool, latencyMs float64) {
	globalManager.transactions.WithLabelValues(op, outcome(ok)).Inc()
	globalManager.transactionLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateStoredRecords sets the number of stored records.
func UpdateStoredRecords(count int) {
	globalManager.storedRecords.Set(float64(count))
}

// Pipeline Metrics Functions.

// RecordDropped counts a record dropped by the decode pipeline.
func RecordDropped(reason string) {
	globalManager.recordsDropped.WithLabelValues(reason).Inc()
}

// RecordRepaired counts a record repaired by the integrity validator.
func RecordRepaired() {
	globalManager.recordsRepaired.Inc()
}

// RecordMigrated counts a record upgraded from before fromVersion.
func RecordMigrated(fromVersion string) {
	globalManager.recordsMigrated.WithLabelValues(fromVersion).Inc()
}

// RecordPurged adds n records removed by a purge of the given kind.
func RecordPurged(kind string, n int) {
	globalManager.recordsPurged.WithLabelValues(kind).Add(float64(n))
}

// RecordConverted counts one record streamed to another store.
func RecordConverted(ok bool) {
	globalManager.recordsConvert.WithLabelValues(outcome(ok)).Inc()
}

// Leaderboard Metrics Functions.

// RecordLeaderboardRebuild records a completed snapshot rebuild.
func RecordLeaderboardRebuild(durationMs float64, finishedUnix float64, entries int) {
	globalManager.leaderboardRebuilds.Inc()
	globalManager.leaderboardRebuildDuration.Observe(durationMs)
	globalManager.leaderboardLastUnix.Set(finishedUnix)
	globalManager.leaderboardEntries.Set(float64(entries))
}

// HTTP Metrics Functions.

// RecordHTTPRequest counts one HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
