// Package metrics provides Prometheus metrics for the FoodBook server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VerificationsTotal counts credential verifications by channel and outcome.
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foodbook",
			Name:      "credential_verifications_total",
			Help:      "Total number of credential verifications",
		},
		[]string{"type", "outcome"},
	)

	// GateDecisionsTotal counts authorization gate decisions.
	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foodbook",
			Name:      "gate_decisions_total",
			Help:      "Total number of authorization gate decisions",
		},
		[]string{"required_role", "decision"},
	)

	// RefreshTotal counts refresh exchanges by result.
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foodbook",
			Name:      "refresh_total",
			Help:      "Total number of refresh credential exchanges",
		},
		[]string{"result"},
	)

	// RequestDuration measures HTTP request handling time.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "foodbook",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

// RecordVerification records a verifier outcome.
func RecordVerification(tokenType, outcome string) {
	VerificationsTotal.WithLabelValues(tokenType, outcome).Inc()
}

// RecordGateDecision records an authorization decision.
func RecordGateDecision(requiredRole, decision string) {
	if requiredRole == "" {
		requiredRole = "any"
	}
	GateDecisionsTotal.WithLabelValues(requiredRole, decision).Inc()
}

// RecordRefresh records the result of a refresh exchange.
func RecordRefresh(result string) {
	RefreshTotal.WithLabelValues(result).Inc()
}

// RecordRequest records an HTTP request.
func RecordRequest(method, status string, seconds float64) {
	RequestDuration.WithLabelValues(method, status).Observe(seconds)
}
