// Package metrics provides Prometheus metrics for the QuickTagger service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds.
var (
	defaultWriteBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // bucket defaults
	defaultHTTPBuckets  = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000}            //nolint:gochecknoglobals // bucket defaults
)

// Manager manages all Prometheus metrics for the tagging service.
type Manager struct {
	namespace    string
	subsystem    string
	writeBuckets []float64
	httpBuckets  []float64
	enabled      bool
	constLabels  map[string]string
	metricPrefix string
	registry     prometheus.Registerer

	// Session metrics
	sessionTransitions *prometheus.CounterVec
	loginFailures      prometheus.Counter
	matchesStarted     prometheus.Counter
	matchStartFailures prometheus.Counter
	matchesEnded       prometheus.Counter
	matchCloseFailures prometheus.Counter
	clockSeconds       prometheus.Gauge

	// Event metrics
	eventsDispatched  *prometheus.CounterVec
	eventsWritten     *prometheus.CounterVec
	eventsFailed      prometheus.Counter
	eventsDropped     prometheus.Counter
	eventsDuplicate   prometheus.Counter
	eventsPublished   prometheus.Counter
	publishFailures   prometheus.Counter
	eventWriteLatency prometheus.Histogram

	// Roster and feedback
	rosterRefreshes     prometheus.Counter
	rosterFetchFailures *prometheus.CounterVec
	feedbackPublished   prometheus.Counter

	// Queue and workers
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge

	// HTTP and live channel
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	wsClients           prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:    "quicktagger",
		subsystem:    "tagging",
		writeBuckets: defaultWriteBuckets,
		httpBuckets:  defaultHTTPBuckets,
		enabled:      true,
		constLabels:  make(map[string]string),
		registry:     prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.sessionTransitions = m.counterVec("session_transitions_total",
		"Session screen transitions by target screen", "screen")
	m.loginFailures = m.counter("login_failures_total",
		"Total number of rejected analyst credentials")
	m.matchesStarted = m.counter("matches_started_total",
		"Total number of matches created and entered into tagging")
	m.matchStartFailures = m.counter("match_start_failures_total",
		"Total number of failed match creations")
	m.matchesEnded = m.counter("matches_ended_total",
		"Total number of matches ended by the operator")
	m.matchCloseFailures = m.counter("match_close_failures_total",
		"Total number of failed remote match status updates")
	m.clockSeconds = m.gauge("clock_seconds",
		"Elapsed seconds of the active match clock")

	m.eventsDispatched = m.counterVec("events_dispatched_total",
		"Events accepted from the operator by category", "category")
	m.eventsWritten = m.counterVec("events_written_total",
		"Events acknowledged by the persistence service by category", "category")
	m.eventsFailed = m.counter("events_failed_total",
		"Events the persistence service rejected")
	m.eventsDropped = m.counter("events_dropped_total",
		"Events dropped before dispatch because the queue was full or closed")
	m.eventsDuplicate = m.counter("events_duplicate_total",
		"Events skipped because their idempotency key was already seen")
	m.eventsPublished = m.counter("events_published_total",
		"Written events mirrored to the message bus")
	m.publishFailures = m.counter("event_publish_failures_total",
		"Failed message bus publishes")
	m.eventWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("event_write_latency_milliseconds"),
		Help:        "Histogram of event write latency in milliseconds",
		Buckets:     m.writeBuckets,
		ConstLabels: m.constLabels,
	})

	m.rosterRefreshes = m.counter("roster_refreshes_total",
		"Total number of roster refreshes")
	m.rosterFetchFailures = m.counterVec("roster_fetch_failures_total",
		"Failed roster fetches by resource", "resource")
	m.feedbackPublished = m.counter("feedback_published_total",
		"Toast messages shown to the operator")

	m.queueSize = m.gauge("queue_size",
		"Current size of the event dispatch queue")
	m.queueCapacity = m.gauge("queue_capacity",
		"Capacity of the event dispatch queue")
	m.workerCount = m.gauge("worker_count",
		"Current number of event writer workers")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.httpBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.wsClients = m.gauge("ws_clients",
		"Connected live session websocket clients")
}

// RecordSessionTransition counts a transition into the given screen.
func RecordSessionTransition(screen string) {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionTransitions.WithLabelValues(screen).Inc()
}

// RecordLoginFailure increments the rejected credentials counter.
func RecordLoginFailure() {
	globalManager.loginFailures.Inc()
}

// RecordMatchStarted increments the matches started counter.
func RecordMatchStarted() {
	globalManager.matchesStarted.Inc()
}

// RecordMatchStartFailure increments the match creation failure counter.
func RecordMatchStartFailure() {
	globalManager.matchStartFailures.Inc()
}

// RecordMatchEnded increments the matches ended counter.
func RecordMatchEnded() {
	globalManager.matchesEnded.Inc()
}

// RecordMatchCloseFailure increments the match close failure counter.
func RecordMatchCloseFailure() {
	globalManager.matchCloseFailures.Inc()
}

// UpdateClockSeconds sets the active match clock gauge.
func UpdateClockSeconds(seconds int) {
	globalManager.clockSeconds.Set(float64(seconds))
}

// RecordEventDispatched counts an accepted event.
func RecordEventDispatched(category string) {
	globalManager.eventsDispatched.WithLabelValues(category).Inc()
}

// RecordEventWritten counts an event acknowledged by the store.
func RecordEventWritten(category string) {
	globalManager.eventsWritten.WithLabelValues(category).Inc()
}

// RecordEventFailed increments the failed event writes counter.
func RecordEventFailed() {
	globalManager.eventsFailed.Inc()
}

// RecordEventDropped increments the dropped events counter.
func RecordEventDropped() {
	globalManager.eventsDropped.Inc()
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordEventPublished increments the message bus publish counter.
func RecordEventPublished() {
	globalManager.eventsPublished.Inc()
}

// RecordPublishFailure increments the message bus failure counter.
func RecordPublishFailure() {
	globalManager.publishFailures.Inc()
}

// RecordEventWriteLatency records event write latency in milliseconds.
func RecordEventWriteLatency(latencyMs float64) {
	globalManager.eventWriteLatency.Observe(latencyMs)
}

// RecordRosterRefresh increments the roster refresh counter.
func RecordRosterRefresh() {
	globalManager.rosterRefreshes.Inc()
}

// RecordRosterFetchFailure counts a failed roster fetch for resource.
func RecordRosterFetchFailure(resource string) {
	globalManager.rosterFetchFailures.WithLabelValues(resource).Inc()
}

// RecordFeedbackPublished increments the toast counter.
func RecordFeedbackPublished() {
	globalManager.feedbackPublished.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateWSClients sets the number of connected websocket clients.
func UpdateWSClients(count int) {
	globalManager.wsClients.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
