// Package metrics provides Prometheus metrics for the catanbot service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector the bot exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Sessions
	sessionsCreated prometheus.Counter
	sessionsActive  prometheus.Gauge
	sessionsExpired prometheus.Counter
	stepOutcomes    *prometheus.CounterVec
	guardRejections *prometheus.CounterVec

	// Interactions
	interactions          *prometheus.CounterVec
	interactionsDuplicate prometheus.Counter
	interactionPanics     prometheus.Counter

	// Persistence
	gamesRecorded      prometheus.Counter
	persistenceErrors  prometheus.Counter
	persistenceLatency prometheus.Histogram
	publishErrors      prometheus.Counter
	rankingQueries     *prometheus.CounterVec
	rankingErrors      *prometheus.CounterVec
	readRetries        prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // avoids default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "catanbot",
		subsystem:        "bot",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}
	if !m.enabled {
		// Collectors still work but are never exported.
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

// RefreshInterval reports how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.sessionsCreated = m.counter("sessions_created_total", "Total number of game-entry sessions created")
	m.sessionsActive = m.gauge("sessions_active", "Current number of sessions held in memory")
	m.sessionsExpired = m.counter("sessions_expired_total", "Total number of sessions removed by the sweeper")
	m.stepOutcomes = m.counterVec("step_outcomes_total",
		"Workflow step results by step and outcome", "step", "outcome")
	m.guardRejections = m.counterVec("guard_rejections_total",
		"Interactions rejected by the session guard by reason", "reason")

	m.interactions = m.counterVec("interactions_total", "Interactions received by kind", "kind")
	m.interactionsDuplicate = m.counter("interactions_duplicate_total",
		"Interactions dropped because their ID was already handled")
	m.interactionPanics = m.counter("interaction_panics_total", "Interaction handlers that panicked")

	m.gamesRecorded = m.counter("games_recorded_total", "Games appended to the result ledger")
	m.persistenceErrors = m.counter("persistence_errors_total", "Failed ledger appends")
	m.persistenceLatency = m.histogram("persistence_latency_milliseconds", "Ledger append latency in milliseconds")
	m.publishErrors = m.counter("publish_errors_total", "Failed game summary publications")
	m.rankingQueries = m.counterVec("ranking_queries_total", "Ranking reads by kind", "kind")
	m.rankingErrors = m.counterVec("ranking_errors_total", "Failed ranking reads by kind", "kind")
	m.readRetries = m.counter("read_retries_total", "Retried backend reads")

	m.queueSize = m.gauge("queue_size", "Current number of queued record jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueues by reason", "reason")

	m.workerCount = m.gauge("worker_count", "Number of running workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time taken by a worker to persist and publish one game")
	m.workerErrors = m.counter("worker_errors_total", "Jobs that finished with an error")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// Session metrics.

// RecordSessionCreated increments the created sessions counter.
func RecordSessionCreated() { globalManager.sessionsCreated.Inc() }

// UpdateSessionsActive sets the number of live sessions.
func UpdateSessionsActive(n int) { globalManager.sessionsActive.Set(float64(n)) }

// RecordSessionsExpired adds n to the expired sessions counter.
func RecordSessionsExpired(n int) { globalManager.sessionsExpired.Add(float64(n)) }

// RecordStepOutcome counts one step result, e.g. ("winner_score", "invalid_score").
func RecordStepOutcome(step, outcome string) {
	globalManager.stepOutcomes.WithLabelValues(step, outcome).Inc()
}

// RecordGuardRejection counts a guard rejection by reason.
func RecordGuardRejection(reason string) {
	globalManager.guardRejections.WithLabelValues(reason).Inc()
}

// Interaction metrics.

// RecordInteraction counts a received interaction.
func RecordInteraction(kind string) { globalManager.interactions.WithLabelValues(kind).Inc() }

// RecordInteractionDuplicate counts a redelivered interaction.
func RecordInteractionDuplicate() { globalManager.interactionsDuplicate.Inc() }

// RecordInteractionPanic counts a recovered handler panic.
func RecordInteractionPanic() { globalManager.interactionPanics.Inc() }

// Persistence metrics.

// RecordGameRecorded counts a game appended to the ledger.
func RecordGameRecorded() { globalManager.gamesRecorded.Inc() }

// RecordPersistenceError counts a failed append.
func RecordPersistenceError() { globalManager.persistenceErrors.Inc() }

// RecordPersistenceLatency records append latency in milliseconds.
func RecordPersistenceLatency(latencyMs float64) { globalManager.persistenceLatency.Observe(latencyMs) }

// RecordPublishError counts a failed summary publication.
func RecordPublishError() { globalManager.publishErrors.Inc() }

// RecordRankingQuery counts a ranking read of the given kind ("top", "rank").
func RecordRankingQuery(kind string) { globalManager.rankingQueries.WithLabelValues(kind).Inc() }

// RecordRankingError counts a failed ranking read.
func RecordRankingError(kind string) { globalManager.rankingErrors.WithLabelValues(kind).Inc() }

// RecordReadRetry counts one retried backend read.
func RecordReadRetry() { globalManager.readRetries.Inc() }

// Queue metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// Worker metrics.

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records how long one job took.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Default returns the process-wide manager.
func Default() *Manager {
	return globalManager
}
