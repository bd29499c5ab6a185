package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "accessible_dispatch", Name: "dispatches_total", Help: "Dispatch decisions by mode"},
		[]string{"mode"},
	)
	DispatchRejections = promauto.NewCounter(prometheus.CounterOpts{Namespace: "accessible_dispatch", Name: "dispatch_rejections_total", Help: "Requests with no eligible driver"})
	DispatchLatency    = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "accessible_dispatch", Name: "dispatch_latency_seconds", Help: "Dispatch decision latency", Buckets: prometheus.DefBuckets})
	ActiveRequests     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "accessible_dispatch", Name: "active_requests", Help: "Requests in the active working set"})
	DriversClaimed     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "accessible_dispatch", Name: "drivers_claimed", Help: "Drivers currently claimed by a dispatch"})

	DegradedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "accessible_dispatch", Name: "degraded_events_total", Help: "External collaborator failures absorbed in degraded mode"},
		[]string{"collaborator"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "accessible_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "accessible_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
