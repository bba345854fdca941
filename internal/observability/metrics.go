package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_spectrum"

// Metrics holds the Prometheus counters, histograms, and gauges for the site
// API and the notification relay.
type Metrics struct {
	// Hail feed metrics.
	FeedFetches *prometheus.CounterVec // labels: outcome={success,error,empty}
	FeedEvents  prometheus.Histogram

	// Map controller metrics.
	ZIPLookups        *prometheus.CounterVec // labels: outcome={success,invalid,not_found,empty}
	Enrichments       *prometheus.CounterVec // labels: source={census,estimate,sentinel,relay}
	SupersededResults *prometheus.CounterVec // labels: operation={load,zip}
	ActiveViews       prometheus.Gauge

	// External API metrics.
	CacheLookups  *prometheus.CounterVec   // labels: cache={reverse,zip,population}, result={hit,miss}
	APIRequests   *prometheus.CounterVec   // labels: provider, outcome={success,error}
	APIDuration   *prometheus.HistogramVec // labels: provider
	MapboxEnabled prometheus.Gauge

	// Relay metrics.
	NotificationsRelayed *prometheus.CounterVec // labels: status (HTTP status code class)
	AuditPublishErrors   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "SPC hail feed fetches by outcome.",
		}, []string{"outcome"}),
		FeedEvents: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_events",
			Help:      "Number of hail reports parsed per feed load.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		ZIPLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zip_lookups_total",
			Help:      "ZIP radius searches by outcome.",
		}, []string{"outcome"}),
		Enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Event enrichments by source of the population value.",
		}, []string{"source"}),
		SupersededResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "superseded_results_total",
			Help:      "Responses discarded because a newer request was issued.",
		}, []string{"operation"}),
		ActiveViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_map_views",
			Help:      "Number of live per-visitor map controllers.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Lookup cache results by cache and result.",
		}, []string{"cache", "result"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Outbound API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_duration_seconds",
			Help:      "Outbound API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		MapboxEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapbox_enabled",
			Help:      "1 when Mapbox reverse geocoding is enabled, 0 otherwise.",
		}),
		NotificationsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_relayed_total",
			Help:      "Notifications relayed to the push provider by response status.",
		}, []string{"status"}),
		AuditPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_publish_errors_total",
			Help:      "Notification audit records that could not be published to Kafka.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FeedFetches,
		m.FeedEvents,
		m.ZIPLookups,
		m.Enrichments,
		m.SupersededResults,
		m.ActiveViews,
		m.CacheLookups,
		m.APIRequests,
		m.APIDuration,
		m.MapboxEnabled,
		m.NotificationsRelayed,
		m.AuditPublishErrors,
	}
}

// ObserveRequest records the duration and outcome of an outbound API call.
// A nil receiver is a no-op so adapters can run without metrics in tests.
func (m *Metrics) ObserveRequest(provider string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.APIRequests.WithLabelValues(provider, outcome).Inc()
	m.APIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// ObserveCache records a cache hit or miss. A nil receiver is a no-op.
func (m *Metrics) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}
