// Package metrics provides Prometheus metrics for the Fundora analytics service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Analytics
	scoresComputed     *prometheus.CounterVec
	returnsComputed    *prometheus.CounterVec
	simulationsRun     prometheus.Counter
	enrichmentDuration prometheus.Histogram

	// Interactions
	interactions          *prometheus.CounterVec
	interactionConflicts  prometheus.Counter
	analyticsCacheHits    prometheus.Counter
	analyticsCacheMisses  prometheus.Counter
	dedupeIndexSize       prometheus.Gauge
	storeOperationLatency *prometheus.HistogramVec
	storeErrors           *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     prometheus.Counter

	// Dispatcher queues
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Writers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of /metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fundora",
		subsystem:        "analytics",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)
	latencyBuckets := m.histogramBuckets

	m.scoresComputed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("scores_total"),
		Help: "Risk scores computed, by model and resulting risk level",
	}, []string{"model", "risk_level"})

	m.returnsComputed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("returns_total"),
		Help: "Projected returns computed, by method",
	}, []string{"method"})

	m.simulationsRun = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("simulations_total"),
		Help: "Investment simulations executed",
	})

	m.enrichmentDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    m.name("enrichment_duration_milliseconds"),
		Help:    "Time to enrich a batch of subjects",
		Buckets: latencyBuckets,
	})

	m.interactions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "interactions", ConstLabels: constLabels,
		Name: m.name("recorded_total"),
		Help: "Interaction recording outcomes, by kind and terminal status",
	}, []string{"kind", "status"})

	m.interactionConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "interactions", ConstLabels: constLabels,
		Name: m.name("claim_conflicts_total"),
		Help: "Inserts rejected by the store uniqueness claim and resolved as duplicates",
	})

	m.analyticsCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "interactions", ConstLabels: constLabels,
		Name: m.name("analytics_cache_hits_total"),
		Help: "Analytics reads served from cache",
	})

	m.analyticsCacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "interactions", ConstLabels: constLabels,
		Name: m.name("analytics_cache_misses_total"),
		Help: "Analytics reads that went to the event store",
	})

	m.dedupeIndexSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "interactions", ConstLabels: constLabels,
		Name: m.name("dedupe_index_entries"),
		Help: "Claims held by the in-memory uniqueness index",
	})

	m.storeOperationLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "store", ConstLabels: constLabels,
		Name:    m.name("operation_latency_milliseconds"),
		Help:    "Event store operation latency",
		Buckets: latencyBuckets,
	}, []string{"driver", "operation"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "store", ConstLabels: constLabels,
		Name: m.name("errors_total"),
		Help: "Event store failures",
	}, []string{"driver", "operation"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: constLabels,
		Name: m.name("requests_total"),
		Help: "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: constLabels,
		Name:    m.name("request_duration_milliseconds"),
		Help:    "HTTP request duration",
		Buckets: latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: constLabels,
		Name: m.name("rate_limited_total"),
		Help: "Requests rejected by the rate limiter",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "writer", ConstLabels: constLabels,
		Name: m.name("queue_size"),
		Help: "Recording commands waiting across all writer queues",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "writer", ConstLabels: constLabels,
		Name: m.name("queue_capacity"),
		Help: "Capacity of a single writer queue",
	})

	m.queueEnqueue = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "writer", ConstLabels: constLabels,
		Name: m.name("enqueued_total"),
		Help: "Commands accepted by writer queues",
	})

	m.queueDequeue = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "writer", ConstLabels: constLabels,
		Name: m.name("dequeued_total"),
		Help: "Commands taken off writer queues",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "writer", ConstLabels: constLabels,
		Name: m.name("enqueue_errors_total"),
		Help: "Commands rejected by full or closed writer queues",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "writer", ConstLabels: constLabels,
		Name: m.name("workers"),
		Help: "Number of single-writer shards",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "writer", ConstLabels: constLabels,
		Name:    m.name("processing_latency_milliseconds"),
		Help:    "Time a writer spends executing one command",
		Buckets: latencyBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "writer", ConstLabels: constLabels,
		Name: m.name("errors_total"),
		Help: "Commands that panicked or failed inside a writer",
	})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "errors", ConstLabels: constLabels,
		Name: m.name("by_component_total"),
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "errors", ConstLabels: constLabels,
		Name: m.name("by_endpoint_total"),
		Help: "HTTP errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: constLabels,
		Name: m.name("memory_bytes"),
		Help: "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: constLabels,
		Name: m.name("goroutines"),
		Help: "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: constLabels,
		Name:    m.name("gc_pause_milliseconds"),
		Help:    "Average GC pause",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
	})
}

// RecordScore counts one risk score computation.
func RecordScore(model, riskLevel string) {
	if !globalManager.enabled {
		return
	}
	globalManager.scoresComputed.WithLabelValues(model, riskLevel).Inc()
}

// RecordReturn counts one projected return computation.
func RecordReturn(method string) {
	if !globalManager.enabled {
		return
	}
	globalManager.returnsComputed.WithLabelValues(method).Inc()
}

// RecordSimulation counts one simulation.
func RecordSimulation() {
	if !globalManager.enabled {
		return
	}
	globalManager.simulationsRun.Inc()
}

// RecordEnrichmentDuration observes how long a batch enrichment took.
func RecordEnrichmentDuration(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.enrichmentDuration.Observe(latencyMs)
}

// RecordInteraction counts a recording outcome.
func RecordInteraction(kind, status string) {
	if !globalManager.enabled {
		return
	}
	globalManager.interactions.WithLabelValues(kind, status).Inc()
}

// RecordClaimConflict counts a uniqueness conflict resolved as duplicate.
func RecordClaimConflict() {
	if !globalManager.enabled {
		return
	}
	globalManager.interactionConflicts.Inc()
}

// RecordAnalyticsCache counts an analytics cache lookup.
func RecordAnalyticsCache(hit bool) {
	if !globalManager.enabled {
		return
	}
	if hit {
		globalManager.analyticsCacheHits.Inc()
		return
	}
	globalManager.analyticsCacheMisses.Inc()
}

// UpdateDedupeIndexSize sets the number of claims in the in-memory index.
func UpdateDedupeIndexSize(size int64) {
	if !globalManager.enabled {
		return
	}
	globalManager.dedupeIndexSize.Set(float64(size))
}

// RecordStoreLatency observes an event store operation.
func RecordStoreLatency(driver, operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeOperationLatency.WithLabelValues(driver, operation).Observe(latencyMs)
}

// RecordStoreError counts an event store failure.
func RecordStoreError(driver, operation string) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeErrors.WithLabelValues(driver, operation).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited() {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRateLimited.Inc()
}

// UpdateQueueSize sets the number of waiting commands.
func UpdateQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the per-queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of writer shards.
func UpdateWorkerCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records how long one command took.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the writer error counter.
func RecordWorkerError() {
	if !globalManager.enabled {
		return
	}
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method and type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
