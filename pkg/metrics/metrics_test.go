package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveProbe("api", "/api/clients", false, "TIMEOUT", 0)
	m.ObserveAlert("error", "critical", "accepted")
	m.ObserveDelivery("slack", nil)
	m.ObserveRun("health", time.Second, nil)
	m.SetOverall(2)
	m.Observe("GET", "/healthz", time.Millisecond)
}

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveProbe("api", "/api/clients", false, "TIMEOUT", 0)
	m.ObserveProbe("api", "/api/clients", true, "", 120*time.Millisecond)
	m.ObserveAlert("performance", "warning", "rate_limited")
	m.ObserveDelivery("email", errors.New("smtp down"))
	m.ObserveRun("health", 2*time.Second, nil)
	m.SetOverall(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProbeFailures.WithLabelValues("api", "/api/clients", "TIMEOUT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("performance", "warning", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkDeliveries.WithLabelValues("email", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("health", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OverallStatus))
}
