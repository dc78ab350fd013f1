package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/metrics"
)

func TestAuthMetrics_RecordOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewAuthMetrics(reg)

	m.RecordOperation("login", metrics.StatusSuccess, 20*time.Millisecond)
	m.RecordOperation("login", metrics.StatusSuccess, 10*time.Millisecond)
	m.RecordOperation("login", metrics.StatusUnauthorized, time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "auth_operations_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAuthMetrics_RecordRotation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewAuthMetrics(reg)

	m.RecordRotation("rotated")
	m.RecordRotation("reused")
	m.RecordRotation("reused")

	count, err := testutil.GatherAndCount(reg, "auth_refresh_rotations_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAuthMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.AuthMetrics

	assert.NotPanics(t, func() {
		m.RecordOperation("login", metrics.StatusSuccess, time.Second)
		m.RecordRotation("rotated")
	})
}

func TestNewAuthMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewAuthMetrics(reg)

	assert.Panics(t, func() {
		metrics.NewAuthMetrics(reg)
	})
}
