// README: Prometheus metrics for transitions, notifications, presence and HTTP.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campusride", Name: "ride_transitions_total", Help: "Ride operations by event and outcome"},
		[]string{"event", "outcome"},
	)
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campusride", Name: "notifications_total", Help: "Notifications raised by audience role"},
		[]string{"audience"},
	)
	ActiveDrivers    = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "campusride", Name: "active_drivers", Help: "Drivers bound to a non-terminal ride"})
	ActivePassengers = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "campusride", Name: "active_passengers", Help: "Passengers bound to or requesting a non-terminal ride"})
	LiveSessions     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "campusride", Name: "live_sessions", Help: "Open streaming sessions"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campusride", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campusride",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
