// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests.
	// Labels: method, route, status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mesophy",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mesophy",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ContentResolutions counts resolver outcomes.
	// Labels: result (scheduled, empty, error)
	ContentResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mesophy",
			Subsystem: "schedule",
			Name:      "resolutions_total",
			Help:      "Total number of current-content resolutions by outcome",
		},
		[]string{"result"},
	)

	// NotificationsDispatched counts notification rows written.
	// Labels: type
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mesophy",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of device notifications created by type",
		},
		[]string{"type"},
	)

	// DispatchFailures counts swallowed dispatch errors.
	// Labels: stage (resolve, store, publish)
	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mesophy",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Total number of notification dispatch failures by stage",
		},
		[]string{"stage"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mesophy",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of device requests rejected by the rate limiter",
		},
	)

	// CalendarRefreshes counts token refresh attempts.
	// Labels: result (refreshed, failed)
	CalendarRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mesophy",
			Subsystem: "calendar",
			Name:      "token_refreshes_total",
			Help:      "Total number of calendar token refreshes by outcome",
		},
		[]string{"result"},
	)
)
