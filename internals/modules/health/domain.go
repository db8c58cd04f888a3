package health

import (
	"time"

	"project-pulse/internals/modules/alert"
	"project-pulse/internals/modules/probe"
)

type Overall string

const (
	OverallHealthy  Overall = "healthy"
	OverallWarning  Overall = "warning"
	OverallCritical Overall = "critical"
)

// Level maps the overall status to the value exported as a gauge.
func (o Overall) Level() float64 {
	switch o {
	case OverallWarning:
		return 1
	case OverallCritical:
		return 2
	}
	return 0
}

// Snapshot is the aggregate of one health run.
type Snapshot struct {
	Timestamp time.Time           `json:"timestamp"`
	Overall   Overall             `json:"overall"`
	Checks    []probe.CheckResult `json:"checks"`
	Alerts    []alert.Alert       `json:"alerts"`
}

// DeriveOverall is critical iff any critical check failed, otherwise warning
// iff any alert was raised, otherwise healthy.
func DeriveOverall(checks []probe.CheckResult, alerts []alert.Alert) Overall {
	for _, c := range checks {
		if c.Critical && !c.Succeeded {
			return OverallCritical
		}
	}
	if len(alerts) > 0 {
		return OverallWarning
	}
	return OverallHealthy
}
