package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "web_requests_total",
			Help: "Total number of web requests",
		},
		[]string{"method", "path"},
	)

	WebRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "web_requests_in_flight",
			Help: "Number of web requests currently being processed",
		},
	)

	WebRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "web_request_duration_seconds",
			Help:    "Duration of web requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	SignupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signups_total",
			Help: "Total number of signup attempts by outcome",
		},
		[]string{"outcome"},
	)

	ContactSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Total number of contact form submissions by outcome",
		},
		[]string{"outcome"},
	)

	SessionsResumedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_resumed_total",
			Help: "Total number of sessions resumed from a remember token",
		},
	)

	FormValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_validation_failures_total",
			Help: "Total number of form validation failures by form and field",
		},
		[]string{"form", "field"},
	)
)
