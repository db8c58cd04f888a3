// Package metrics defines the Prometheus collectors exported by the monitor.
//
// Naming follows Prometheus conventions: pulse_ prefix, _total for counters,
// _seconds for duration histograms. All methods are safe on a nil *Metrics so
// components can be constructed without a registry in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ProbeDuration   *prometheus.HistogramVec
	ProbeFailures   *prometheus.CounterVec
	AlertsTotal     *prometheus.CounterVec
	SinkDeliveries  *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	RunsTotal       *prometheus.CounterVec
	OverallStatus   prometheus.Gauge
	HTTPRequestTime *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProbeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_probe_duration_seconds",
				Help:    "Latency of completed probes by group and target.",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 3, 5, 10, 15},
			},
			[]string{"group", "target"},
		),
		ProbeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_probe_failures_total",
				Help: "Failed probes by group, target and reason.",
			},
			[]string{"group", "target", "reason"},
		),
		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_alerts_total",
				Help: "Alerts seen by the policy engine by type, severity and outcome.",
			},
			[]string{"type", "severity", "outcome"},
		),
		SinkDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_sink_deliveries_total",
				Help: "Notification deliveries by sink and result.",
			},
			[]string{"sink", "result"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_run_duration_seconds",
				Help:    "Duration of scheduled batteries.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"kind"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_runs_total",
				Help: "Battery runs by kind and status.",
			},
			[]string{"kind", "status"},
		),
		OverallStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_overall_status",
				Help: "Last overall health: 0 healthy, 1 warning, 2 critical.",
			},
		),
		HTTPRequestTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_http_request_duration_seconds",
				Help:    "Status API request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.ProbeDuration,
			m.ProbeFailures,
			m.AlertsTotal,
			m.SinkDeliveries,
			m.RunDuration,
			m.RunsTotal,
			m.OverallStatus,
			m.HTTPRequestTime,
		)
	}
	return m
}

func (m *Metrics) ObserveProbe(group, target string, succeeded bool, reason string, latency time.Duration) {
	if m == nil {
		return
	}
	if latency > 0 {
		m.ProbeDuration.WithLabelValues(group, target).Observe(latency.Seconds())
	}
	if !succeeded {
		m.ProbeFailures.WithLabelValues(group, target, reason).Inc()
	}
}

func (m *Metrics) ObserveAlert(alertType, severity, outcome string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(alertType, severity, outcome).Inc()
}

func (m *Metrics) ObserveDelivery(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SinkDeliveries.WithLabelValues(sink, result).Inc()
}

func (m *Metrics) ObserveRun(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RunDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.RunsTotal.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) SetOverall(level float64) {
	if m == nil {
		return
	}
	m.OverallStatus.Set(level)
}

// Observe satisfies middleware.MetricsRecorder.
func (m *Metrics) Observe(method, path string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestTime.WithLabelValues(method, path).Observe(duration.Seconds())
}
