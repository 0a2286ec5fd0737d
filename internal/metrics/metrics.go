// Package metrics holds Prometheus instruments that are used across the
// login service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for LoginAttemptsTotal.
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeInvalid     = "invalid"
	OutcomeBusy        = "busy"
)

var (
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Login submissions by outcome.",
		}, []string{"outcome"})

	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_validation_failures_total",
			Help: "Field-level validation failures by field and kind.",
		}, []string{"field", "kind"})

	AuthenticateSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "login_authenticate_seconds",
			Help:    "Latency of the authenticate capability.",
			Buckets: []float64{.05, .1, .25, .5, 1, 1.5, 2.5, 5, 10},
		})

	DuplicateSubmitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "login_duplicate_submits_total",
			Help: "Form posts that joined an in-flight submission of the same form instance.",
		})

	FormRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_form_rejects_total",
			Help: "Posts refused before validation (csrf, expired, too fast).",
		}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(
		LoginAttemptsTotal,
		ValidationFailuresTotal,
		AuthenticateSeconds,
		DuplicateSubmitsTotal,
		FormRejectsTotal,
	)
}
