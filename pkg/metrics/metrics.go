package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API transport metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of requests issued to the rental API",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Rental API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Session metrics
	SessionRenewalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_renewals_total",
			Help: "Total number of access credential renewals",
		},
		[]string{"trigger", "result"},
	)

	SessionActiveGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_active",
			Help: "1 while an authenticated session exists, 0 otherwise",
		},
	)

	// Booking metrics
	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Total number of booking transition calls",
		},
		[]string{"operation", "result"},
	)

	// Stream metrics
	StreamReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_reconnects_total",
			Help: "Total number of booking stream reconnect attempts",
		},
	)

	StreamUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_updates_total",
			Help: "Total number of booking status updates received",
		},
	)
)

// RecordAPIRequest records transport-level request metrics
func RecordAPIRequest(method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	APIRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordRenewal records the outcome of a credential renewal
func RecordRenewal(trigger string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	SessionRenewalsTotal.WithLabelValues(trigger, result).Inc()
}

// RecordTransition records the outcome of a booking transition call
func RecordTransition(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	BookingTransitionsTotal.WithLabelValues(operation, result).Inc()
}
