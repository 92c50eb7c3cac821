package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"lrd/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	SetActiveSessions(count int)
	SetUsersTotal(count int)
	SetTelemetryQueueDepth(depth int)
	IncTelemetryEvents(kind string)
	IncClaims(outcome string)
	IncSettlementRetries()
	IncSettlementResults(status string)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	activeSessions      prometheus.Gauge
	usersTotal          prometheus.Gauge
	telemetryQueueDepth prometheus.Gauge
	telemetryEvents     *prometheus.CounterVec
	claimsTotal         *prometheus.CounterVec
	settlementRetries   prometheus.Counter
	settlementResults   *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) SetActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

func (m *MetricsProvider) SetUsersTotal(count int) {
	m.usersTotal.Set(float64(count))
}

func (m *MetricsProvider) SetTelemetryQueueDepth(depth int) {
	m.telemetryQueueDepth.Set(float64(depth))
}

func (m *MetricsProvider) IncTelemetryEvents(kind string) {
	m.telemetryEvents.WithLabelValues(kind).Inc()
}

func (m *MetricsProvider) IncClaims(outcome string) {
	m.claimsTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) IncSettlementRetries() {
	m.settlementRetries.Inc()
}

func (m *MetricsProvider) IncSettlementResults(status string) {
	m.settlementResults.WithLabelValues(status).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lrd_http_requests_total",
			Help: "HTTP requests by endpoint and status class.",
		}, []string{"endpoint", "status"}),
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lrd_http_request_duration_seconds",
			Help:    "HTTP request latency by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lrd_cache_hits_total",
			Help: "Read-endpoint cache hits.",
		}),
		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lrd_cache_misses_total",
			Help: "Read-endpoint cache misses.",
		}),
		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lrd_persistence_duration_seconds",
			Help:    "Snapshot save duration.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		activeSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lrd_active_sessions",
			Help: "Sessions currently active or paused.",
		}),
		usersTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lrd_users_total",
			Help: "Users resident in the hot registry.",
		}),
		telemetryQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lrd_telemetry_queue_depth",
			Help: "Telemetry events waiting for the accrual tick.",
		}),
		telemetryEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lrd_telemetry_events_total",
			Help: "Telemetry events applied, by kind.",
		}, []string{"kind"}),
		claimsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lrd_claims_total",
			Help: "Claim requests by gate outcome.",
		}, []string{"outcome"}),
		settlementRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lrd_settlement_retries_total",
			Help: "Settlement submissions retried after failure.",
		}),
		settlementResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lrd_settlement_results_total",
			Help: "Settlement outcomes, confirmed or failed.",
		}, []string{"status"}),
	}
}

type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(string, int)                  {}
func (n *noopMetrics) ObserveRequestDuration(string, time.Duration)  {}
func (n *noopMetrics) IncCacheHits()                                 {}
func (n *noopMetrics) IncCacheMisses()                               {}
func (n *noopMetrics) ObservePersistenceDuration(time.Duration)      {}
func (n *noopMetrics) SetActiveSessions(int)                         {}
func (n *noopMetrics) SetUsersTotal(int)                             {}
func (n *noopMetrics) SetTelemetryQueueDepth(int)                    {}
func (n *noopMetrics) IncTelemetryEvents(string)                     {}
func (n *noopMetrics) IncClaims(string)                              {}
func (n *noopMetrics) IncSettlementRetries()                         {}
func (n *noopMetrics) IncSettlementResults(string)                   {}
