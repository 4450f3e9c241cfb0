package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries that exceeded the slow query threshold",
		},
		[]string{"sql"},
	)

	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1ms to ~4s
		},
		[]string{"routing_key", "queue"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_events_published_total",
			Help: "Domain events handed to the broker",
		},
		[]string{"routing_key", "status"}, // status: ok, failed, dropped, queued (outbox)
	)

	AnalyticsComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_compute_duration_seconds",
			Help:    "Time spent building an analytics report",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		},
	)

	InsightsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_insights_generated_total",
			Help: "Insights returned to users, by category",
		},
		[]string{"category"},
	)

	AnalyticsCacheResult = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_requests_total",
			Help: "Analytics cache lookups",
		},
		[]string{"result"}, // hit, miss, error
	)

	CompletionToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_toggles_total",
			Help: "Completion toggles, by resulting state",
		},
		[]string{"completed"},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery counts a slow statement. duration is only logged by the
// caller; keeping it out of the labels bounds cardinality.
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
}

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func IncrementEventPublished(routingKey, status string) {
	EventsPublished.WithLabelValues(routingKey, status).Inc()
}

func RecordAnalyticsCompute(duration time.Duration) {
	AnalyticsComputeDuration.Observe(duration.Seconds())
}

func IncrementInsight(category string) {
	InsightsGenerated.WithLabelValues(category).Inc()
}

func IncrementCacheResult(result string) {
	AnalyticsCacheResult.WithLabelValues(result).Inc()
}

func IncrementToggle(completed bool) {
	label := "false"
	if completed {
		label = "true"
	}
	CompletionToggles.WithLabelValues(label).Inc()
}
