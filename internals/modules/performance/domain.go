package performance

import (
	"time"

	"project-pulse/internals/modules/alert"
	"project-pulse/internals/modules/probe"
)

// TargetMetrics aggregates the repeated measurements of one target.
type TargetMetrics struct {
	Name         string              `json:"name"`
	Target       string              `json:"target"`
	Measurements []probe.CheckResult `json:"measurements"`
	// AvgLatencyMs averages successful measurements only; nil if none succeeded.
	AvgLatencyMs *float64 `json:"avgLatencyMs"`
	SuccessRate  float64  `json:"successRate"`
}

type Snapshot struct {
	Timestamp     time.Time           `json:"timestamp"`
	APIMetrics    []TargetMetrics     `json:"apiMetrics"`
	DBMetrics     []TargetMetrics     `json:"dbMetrics"`
	PageMetrics   []TargetMetrics     `json:"pageMetrics"`
	SystemMetrics probe.SystemMetrics `json:"systemMetrics"`
	Alerts        []alert.Alert       `json:"alerts"`
}

func aggregate(t probe.Target, ms []probe.CheckResult) TargetMetrics {
	tm := TargetMetrics{
		Name:         t.Name,
		Target:       t.ID(),
		Measurements: ms,
	}
	if len(ms) == 0 {
		return tm
	}

	var sum float64
	var ok int
	for _, m := range ms {
		if m.Succeeded && m.LatencyMs != nil {
			sum += float64(*m.LatencyMs)
			ok++
		}
	}
	tm.SuccessRate = float64(ok) / float64(len(ms))
	if ok > 0 {
		avg := sum / float64(ok)
		tm.AvgLatencyMs = &avg
	}
	return tm
}
