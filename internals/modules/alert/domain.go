package alert

import (
	"time"
)

type Type string

const (
	TypePerformance Type = "performance"
	TypeError       Type = "error"
	TypeResource    Type = "resource"
	TypeData        Type = "data"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a raised condition produced by a battery. Exactly one of
// Endpoint, Page or Query names the target, if any.
type Alert struct {
	Type     Type     `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Endpoint string   `json:"endpoint,omitempty"`
	Page     string   `json:"page,omitempty"`
	Query    string   `json:"query,omitempty"`

	ResponseTime float64 `json:"responseTime,omitempty"`
	QueryTime    float64 `json:"queryTime,omitempty"`
	LoadTime     float64 `json:"loadTime,omitempty"`
	MemoryUsage  float64 `json:"memoryUsage,omitempty"`
}

// Target returns the first non-empty target identifier.
func (a Alert) Target() string {
	switch {
	case a.Endpoint != "":
		return a.Endpoint
	case a.Page != "":
		return a.Page
	default:
		return a.Query
	}
}

// Key is the de-duplication key: alerts with equal keys are repeats.
func (a Alert) Key() string {
	return string(a.Type) + "|" + a.Target()
}

// OnTarget returns a copy of a whose target and latency fields match the
// probe group: api sets Endpoint and ResponseTime, page sets Page and
// LoadTime, db sets Query and QueryTime.
func (a Alert) OnTarget(group, id string, latencyMs float64) Alert {
	switch group {
	case "api":
		a.Endpoint, a.ResponseTime = id, latencyMs
	case "page":
		a.Page, a.LoadTime = id, latencyMs
	case "db":
		a.Query, a.QueryTime = id, latencyMs
	default:
		a.Endpoint, a.ResponseTime = id, latencyMs
	}
	return a
}

// HistoryEntry is a persisted record of an accepted alert. Sent records the
// intent to notify, not confirmed delivery.
type HistoryEntry struct {
	ID string `json:"id"`
	Alert
	Timestamp time.Time `json:"timestamp"`
	Sent      bool      `json:"sent"`
}

// Statistics summarises the alert history for the dashboard.
type Statistics struct {
	Total       int              `json:"total"`
	Last24h     int              `json:"last24h"`
	Last7d      int              `json:"last7d"`
	ByType      map[Type]int     `json:"byType"`
	BySeverity  map[Severity]int `json:"bySeverity"`
	LastAlertAt *time.Time       `json:"lastAlertAt,omitempty"`
	Recent      []HistoryEntry   `json:"recent"`
}

// Digest is the daily summary handed to every sink.
type Digest struct {
	From       time.Time        `json:"from"`
	To         time.Time        `json:"to"`
	Total      int              `json:"total"`
	ByType     map[Type]int     `json:"byType"`
	BySeverity map[Severity]int `json:"bySeverity"`
	Alerts     []HistoryEntry   `json:"alerts"`
}
