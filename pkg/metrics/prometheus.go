// Package metrics provides Prometheus metrics for the civicrank pipeline and site.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace = "civicrank"
	defaultSubsystem = "pipeline"
)

// Manager owns every collector exported by the process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Upstream fetch metrics
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	upstreamRetries  *prometheus.CounterVec

	// Stage metrics
	stageDuration    *prometheus.HistogramVec
	stageLastSuccess *prometheus.GaugeVec
	stageFailures    *prometheus.CounterVec
	recordsSkipped   *prometheus.CounterVec
	recordsWritten   *prometheus.CounterVec

	// Streak metrics
	streakIncrements *prometheus.CounterVec
	streakResets     *prometheus.CounterVec
	leaderStreak     *prometheus.GaugeVec

	// Job queue metrics
	queueSize    prometheus.Gauge
	jobsDone     prometheus.Counter
	jobsFailed   prometheus.Counter
	workersAlive prometheus.Gauge

	// Site metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	loadedRecords       *prometheus.GaugeVec
	reloads             *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.upstreamRequests = m.counterVec("upstream_requests_total",
		"Upstream API requests by source and HTTP status", "source", "status")
	m.upstreamLatency = m.histogramVec("upstream_request_duration_seconds",
		"Upstream API request latency in seconds", "source")
	m.upstreamRetries = m.counterVec("upstream_retries_total",
		"Retries issued for rate-limited upstream responses", "source")

	m.stageDuration = m.histogramVec("stage_duration_seconds",
		"Pipeline stage duration in seconds", "stage", "chamber")
	m.stageLastSuccess = m.gaugeVec("stage_last_success_unixtime",
		"Unix time of the last successful stage run", "stage", "chamber")
	m.stageFailures = m.counterVec("stage_failures_total",
		"Pipeline stage failures", "stage", "chamber")
	m.recordsSkipped = m.counterVec("records_skipped_total",
		"Records skipped because an upstream fetch or decode failed", "stage", "reason")
	m.recordsWritten = m.counterVec("records_written_total",
		"Records written to output files", "file")

	m.streakIncrements = m.counterVec("streak_increments_total",
		"Streak counters incremented by the streak calculator", "chamber", "kind")
	m.streakResets = m.counterVec("streak_resets_total",
		"Streak counters reset to zero by the streak calculator", "chamber", "kind")
	m.leaderStreak = m.gaugeVec("leader_streak",
		"Current leader streak length per chamber", "chamber")

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "job_queue_size", Help: "Fetch jobs waiting in the queue",
		ConstLabels: m.constLabels,
	})
	m.jobsDone = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "jobs_done_total", Help: "Fetch jobs completed",
		ConstLabels: m.constLabels,
	})
	m.jobsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "jobs_failed_total", Help: "Fetch jobs that returned an error",
		ConstLabels: m.constLabels,
	})
	m.workersAlive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "workers_alive", Help: "Fetch workers currently running",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = m.counterVec("http_requests_total",
		"Site HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_seconds",
		"Site HTTP request duration in seconds", "endpoint", "method", "status_code")
	m.loadedRecords = m.gaugeVec("loaded_records",
		"Records currently served by the site", "dataset")
	m.reloads = m.counterVec("data_reloads_total",
		"Data reloads by result", "result")
}

// Upstream fetches.

func RecordUpstreamRequest(source string, status int, latency time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.upstreamRequests.WithLabelValues(source, fmt.Sprint(status)).Inc()
	globalManager.upstreamLatency.WithLabelValues(source).Observe(latency.Seconds())
}

func RecordUpstreamRetry(source string) {
	globalManager.upstreamRetries.WithLabelValues(source).Inc()
}

// Stages.

func RecordStage(stage, chamber string, d time.Duration, err error) {
	globalManager.stageDuration.WithLabelValues(stage, chamber).Observe(d.Seconds())
	if err != nil {
		globalManager.stageFailures.WithLabelValues(stage, chamber).Inc()
		return
	}
	globalManager.stageLastSuccess.WithLabelValues(stage, chamber).SetToCurrentTime()
}

func RecordSkipped(stage, reason string) {
	globalManager.recordsSkipped.WithLabelValues(stage, reason).Inc()
}

func RecordWritten(file string, n int) {
	globalManager.recordsWritten.WithLabelValues(file).Add(float64(n))
}

// Streaks.

func RecordStreakIncrements(chamber, kind string, n int) {
	globalManager.streakIncrements.WithLabelValues(chamber, kind).Add(float64(n))
}

func RecordStreakResets(chamber, kind string, n int) {
	globalManager.streakResets.WithLabelValues(chamber, kind).Add(float64(n))
}

func UpdateLeaderStreak(chamber string, n int) {
	globalManager.leaderStreak.WithLabelValues(chamber).Set(float64(n))
}

// Job queue.

func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }
func RecordJobDone()           { globalManager.jobsDone.Inc() }
func RecordJobFailed()         { globalManager.jobsFailed.Inc() }
func UpdateWorkersAlive(n int) { globalManager.workersAlive.Set(float64(n)) }

// Site.

func RecordHTTPRequest(endpoint, method, statusCode string, d time.Duration) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(d.Seconds())
}

func UpdateLoadedRecords(dataset string, n int) {
	globalManager.loadedRecords.WithLabelValues(dataset).Set(float64(n))
}

func RecordReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	globalManager.reloads.WithLabelValues(result).Inc()
}

// GetRegistry returns the process registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the registry in the node-exporter textfile format.
// Batch commands call it once before exiting.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	return nil
}
