package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yojana_resolutions_total",
			Help: "Total number of profile resolutions by result source and fallback reason",
		},
		[]string{"source", "reason"},
	)

	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yojana_resolution_duration_seconds",
			Help:    "Duration of profile resolution in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"source"},
	)

	DroppedRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yojana_dropped_records_total",
			Help: "Total number of completion records dropped for not matching the scheme shape",
		},
	)

	FlowTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yojana_flow_transitions_total",
			Help: "Total number of flow controller state transitions",
		},
		[]string{"to"},
	)

	StaleResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yojana_stale_results_total",
			Help: "Total number of resolution results discarded after a restart",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yojana_http_requests_total",
			Help: "Total number of API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yojana_http_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yojana_active_sessions",
			Help: "Number of onboarding sessions held by the API server",
		},
	)
)

// ObserveResolution records one completed resolution
func ObserveResolution(source, reason string, dropped int, d time.Duration) {
	ResolutionsTotal.WithLabelValues(source, reason).Inc()
	ResolutionDuration.WithLabelValues(source).Observe(d.Seconds())
	if dropped > 0 {
		DroppedRecordsTotal.Add(float64(dropped))
	}
}

// ObserveHTTP records one served API request
func ObserveHTTP(method, route, status string, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
