// Package metrics exposes Prometheus instrumentation for credential and session operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status labels for operation metrics.
const (
	StatusSuccess      = "success"
	StatusRejected     = "rejected"
	StatusUnauthorized = "unauthorized"
	StatusUnavailable  = "unavailable"
	StatusError        = "error"
)

// AuthMetrics holds the auth service collectors.
// A nil *AuthMetrics is valid and records nothing.
type AuthMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rotations  *prometheus.CounterVec
}

// NewAuthMetrics creates the collectors and registers them with reg.
// Panics if registration fails (following prometheus convention).
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Total number of auth operations by outcome",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_operation_duration_seconds",
			Help:    "Auth operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_rotations_total",
			Help: "Refresh token exchanges by result",
		}, []string{"result"}),
	}

	reg.MustRegister(m.operations, m.duration, m.rotations)

	return m
}

// RecordOperation counts one completed operation and its duration.
func (m *AuthMetrics) RecordOperation(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}

	m.operations.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRotation counts a refresh exchange. result is "rotated", "reused", "expired" or "invalid".
func (m *AuthMetrics) RecordRotation(result string) {
	if m == nil {
		return
	}

	m.rotations.WithLabelValues(result).Inc()
}
