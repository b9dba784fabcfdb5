package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all client-side instrumentation
type Metrics struct {
	// API call metrics, labelled by resource and operation (list, get,
	// create, update, delete)
	APIRequests *prometheus.CounterVec
	APIErrors   *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	// Controller metrics
	ListRefreshes        *prometheus.CounterVec
	StaleResponseDrops   prometheus.Counter
	NotificationsEmitted *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the given registerer.
// Passing a fresh prometheus.NewRegistry keeps tests isolated.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests issued",
		}, []string{"resource", "operation"}),
		APIErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Total number of failed API requests by error kind",
		}, []string{"resource", "operation", "kind"}),
		APILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Time spent waiting for the API",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"resource", "operation"}),
		ListRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_refreshes_total",
			Help:      "Total number of list re-fetches triggered by filter changes",
		}, []string{"resource"}),
		StaleResponseDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_dropped_total",
			Help:      "Responses discarded by the sequence guard for arriving after a newer one",
		}),
		NotificationsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_emitted_total",
			Help:      "User-facing notifications by kind",
		}, []string{"kind"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.APIRequests,
			m.APIErrors,
			m.APILatency,
			m.ListRefreshes,
			m.StaleResponseDrops,
			m.NotificationsEmitted,
		)
	}
	return m
}
