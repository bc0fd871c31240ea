// Package metrics provides Prometheus metrics for the billhub aggregation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Breaker state values reported through UpdateBreakerState.
const (
	BreakerStateClosed   = 0
	BreakerStateHalfOpen = 1
	BreakerStateOpen     = 2
)

// Manager manages all Prometheus metrics for the billhub service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Upstream Metrics - Calls to legislative data providers
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	upstreamBills    *prometheus.CounterVec

	// Quota Metrics - Monthly request budget per source
	quotaUsed   *prometheus.GaugeVec
	quotaLimit  *prometheus.GaugeVec
	quotaDenied *prometheus.CounterVec

	// Breaker Metrics - Circuit breaker lifecycle
	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
	breakerRejections  *prometheus.CounterVec

	// Aggregation Metrics - Merge quality and fan-out outcomes
	aggregateLatency  *prometheus.HistogramVec
	mergeDuplicates   prometheus.Counter
	partialResponses  prometheus.Counter
	fallbackResponses prometheus.Counter

	// Cache Metrics - Response cache effectiveness
	cacheHits      prometheus.Counter
	cacheStaleHits prometheus.Counter
	cacheMisses    prometheus.Counter
	notModified    prometheus.Counter
	cacheEntries   prometheus.Gauge

	// Refresh Metrics - Background revalidation pipeline
	refreshQueueSize     prometheus.Gauge
	refreshQueueCapacity prometheus.Gauge
	refreshEnqueues      prometheus.Counter
	refreshDrops         prometheus.Counter
	refreshDuplicates    prometheus.Counter
	refreshJobs          *prometheus.CounterVec
	refreshLatency       prometheus.Histogram
	refreshWorkers       prometheus.Gauge

	// Feed Metrics - RSS action-feed polling
	feedPolls    *prometheus.CounterVec
	feedTriggers prometheus.Counter

	// Civic Metrics - Representative lookups
	civicLookups *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     prometheus.Counter

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "billhub",
		subsystem:        "aggregator",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Upstream Metrics - Calls to legislative data providers
	m.upstreamRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream provider calls by source, operation, and outcome",
		},
		[]string{"source", "operation", "outcome"},
	)

	m.upstreamLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "upstream_request_duration_milliseconds",
			Help:      "Upstream provider call duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"source", "operation"},
	)

	m.upstreamBills = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "upstream_bills_fetched_total",
			Help:      "Total number of bills returned by upstream providers",
		},
		[]string{"source"},
	)

	// Quota Metrics - Monthly request budget per source
	m.quotaUsed = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "quota_used",
			Help:      "Requests consumed in the current quota period",
		},
		[]string{"source"},
	)

	m.quotaLimit = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "quota_limit",
			Help:      "Configured request ceiling for the quota period",
		},
		[]string{"source"},
	)

	m.quotaDenied = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "quota_denied_total",
			Help:      "Total number of upstream calls denied by the quota limiter",
		},
		[]string{"source"},
	)

	// Breaker Metrics - Circuit breaker lifecycle
	m.breakerState = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per source (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	m.breakerTransitions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions",
		},
		[]string{"source", "to"},
	)

	m.breakerRejections = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "breaker_rejections_total",
			Help:      "Total number of calls short-circuited by an open breaker",
		},
		[]string{"source"},
	)

	// Aggregation Metrics - Merge quality and fan-out outcomes
	m.aggregateLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "aggregate_duration_milliseconds",
			Help:      "End-to-end aggregation duration in milliseconds by query mode",
			Buckets:   m.histogramBuckets,
		},
		[]string{"mode"},
	)

	m.mergeDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "merge_duplicates_total",
		Help:      "Total number of duplicate bills collapsed during merge",
	})

	m.partialResponses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "partial_responses_total",
		Help:      "Total number of responses served with at least one source missing",
	})

	m.fallbackResponses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fallback_responses_total",
		Help:      "Total number of responses served from expired cache after total upstream failure",
	})

	// Cache Metrics - Response cache effectiveness
	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of fresh cache hits",
	})

	m.cacheStaleHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_stale_hits_total",
		Help:      "Total number of stale cache hits served while revalidating",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses",
	})

	m.notModified = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "etag_not_modified_total",
		Help:      "Total number of 304 Not Modified responses served on ETag match",
	})

	m.cacheEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_entries",
		Help:      "Current number of cached query results",
	})

	// Refresh Metrics - Background revalidation pipeline
	m.refreshQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_queue_size",
		Help:      "Current size of the revalidation queue (backlog indicator)",
	})

	m.refreshQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_queue_capacity",
		Help:      "Maximum revalidation queue capacity",
	})

	m.refreshEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_enqueue_total",
		Help:      "Total number of revalidation jobs enqueued",
	})

	m.refreshDrops = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_dropped_total",
		Help:      "Total number of revalidation jobs dropped because the queue was full",
	})

	m.refreshDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_duplicates_total",
		Help:      "Total number of revalidation jobs suppressed because the query was already pending",
	})

	m.refreshJobs = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "refresh_jobs_total",
			Help:      "Total number of completed revalidation jobs by outcome",
		},
		[]string{"outcome"},
	)

	m.refreshLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_job_duration_milliseconds",
		Help:      "Revalidation job duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.refreshWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_worker_count",
		Help:      "Current number of revalidation workers",
	})

	// Feed Metrics - RSS action-feed polling
	m.feedPolls = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "feed_polls_total",
			Help:      "Total number of action-feed polls by feed and outcome",
		},
		[]string{"feed", "outcome"},
	)

	m.feedTriggers = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_triggered_refreshes_total",
		Help:      "Total number of revalidations triggered by feed activity",
	})

	// Civic Metrics - Representative lookups
	m.civicLookups = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "civic_lookups_total",
			Help:      "Total number of representative resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_rate_limited_total",
		Help:      "Total number of inbound requests rejected by the client rate limiter",
	})

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// Upstream Metrics Functions.

// RecordUpstreamRequest counts an upstream call by source, operation, and outcome.
func RecordUpstreamRequest(source, operation, outcome string) {
	globalManager.upstreamRequests.WithLabelValues(source, operation, outcome).Inc()
}

// RecordUpstreamLatency records upstream call latency in milliseconds.
func RecordUpstreamLatency(source, operation string, latencyMs float64) {
	globalManager.upstreamLatency.WithLabelValues(source, operation).Observe(latencyMs)
}

// RecordBillsFetched adds to the per-source fetched bill counter.
func RecordBillsFetched(source string, count int) {
	globalManager.upstreamBills.WithLabelValues(source).Add(float64(count))
}

// Quota Metrics Functions.

// UpdateQuotaUsed sets the consumed request count for a source.
func UpdateQuotaUsed(source string, used int) {
	globalManager.quotaUsed.WithLabelValues(source).Set(float64(used))
}

// UpdateQuotaLimit sets the configured ceiling for a source.
func UpdateQuotaLimit(source string, limit int) {
	globalManager.quotaLimit.WithLabelValues(source).Set(float64(limit))
}

// RecordQuotaDenied increments the per-source quota denial counter.
func RecordQuotaDenied(source string) {
	globalManager.quotaDenied.WithLabelValues(source).Inc()
}

// Breaker Metrics Functions.

// UpdateBreakerState sets the reported breaker state for a source.
func UpdateBreakerState(source string, state int) {
	globalManager.breakerState.WithLabelValues(source).Set(float64(state))
}

// RecordBreakerTransition counts a breaker state transition.
func RecordBreakerTransition(source, to string) {
	globalManager.breakerTransitions.WithLabelValues(source, to).Inc()
}

// RecordBreakerRejection counts a call short-circuited by an open breaker.
func RecordBreakerRejection(source string) {
	globalManager.breakerRejections.WithLabelValues(source).Inc()
}

// Aggregation Metrics Functions.

// RecordAggregateLatency records end-to-end aggregation latency by query mode.
func RecordAggregateLatency(mode string, latencyMs float64) {
	globalManager.aggregateLatency.WithLabelValues(mode).Observe(latencyMs)
}

// RecordMergeDuplicates adds to the collapsed-duplicate counter.
func RecordMergeDuplicates(count int) {
	globalManager.mergeDuplicates.Add(float64(count))
}

// RecordPartialResponse counts a response served with missing sources.
func RecordPartialResponse() {
	globalManager.partialResponses.Inc()
}

// RecordFallbackResponse counts a response served from expired cache.
func RecordFallbackResponse() {
	globalManager.fallbackResponses.Inc()
}

// Cache Metrics Functions.

// RecordCacheHit increments the fresh hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheStaleHit increments the stale hit counter.
func RecordCacheStaleHit() {
	globalManager.cacheStaleHits.Inc()
}

// RecordCacheMiss increments the miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordNotModified counts a 304 response served on ETag match.
func RecordNotModified() {
	globalManager.notModified.Inc()
}

// UpdateCacheEntries sets the current number of cached query results.
func UpdateCacheEntries(count int) {
	globalManager.cacheEntries.Set(float64(count))
}

// Refresh Metrics Functions.

// UpdateRefreshQueueSize sets the current revalidation queue size.
func UpdateRefreshQueueSize(size int) {
	globalManager.refreshQueueSize.Set(float64(size))
}

// UpdateRefreshQueueCapacity sets the maximum revalidation queue capacity.
func UpdateRefreshQueueCapacity(capacity int) {
	globalManager.refreshQueueCapacity.Set(float64(capacity))
}

// RecordRefreshEnqueue increments the enqueue counter.
func RecordRefreshEnqueue() {
	globalManager.refreshEnqueues.Inc()
}

// RecordRefreshDropped counts a job dropped because the queue was full.
func RecordRefreshDropped() {
	globalManager.refreshDrops.Inc()
}

// RecordRefreshDuplicate counts a suppressed already-pending job.
func RecordRefreshDuplicate() {
	globalManager.refreshDuplicates.Inc()
}

// RecordRefreshJob counts a completed revalidation job by outcome.
func RecordRefreshJob(outcome string) {
	globalManager.refreshJobs.WithLabelValues(outcome).Inc()
}

// RecordRefreshLatency records revalidation job latency in milliseconds.
func RecordRefreshLatency(latencyMs float64) {
	globalManager.refreshLatency.Observe(latencyMs)
}

// UpdateRefreshWorkers sets the current revalidation worker count.
func UpdateRefreshWorkers(count int) {
	globalManager.refreshWorkers.Set(float64(count))
}

// Feed Metrics Functions.

// RecordFeedPoll counts an action-feed poll by feed and outcome.
func RecordFeedPoll(feed, outcome string) {
	globalManager.feedPolls.WithLabelValues(feed, outcome).Inc()
}

// RecordFeedTrigger counts a revalidation triggered by feed activity.
func RecordFeedTrigger() {
	globalManager.feedTriggers.Inc()
}

// Civic Metrics Functions.

// RecordCivicLookup counts a representative resolution by outcome.
func RecordCivicLookup(outcome string) {
	globalManager.civicLookups.WithLabelValues(outcome).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPRateLimited counts an inbound request rejected by the rate limiter.
func RecordHTTPRateLimited() {
	globalManager.httpRateLimited.Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
