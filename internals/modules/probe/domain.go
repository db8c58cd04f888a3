package probe

import (
	"time"
)

// Group is the target class a probe belongs to. Thresholds and timeouts are
// chosen per group.
type Group string

const (
	GroupAPI      Group = "api"
	GroupPage     Group = "page"
	GroupDB       Group = "db"
	GroupResource Group = "resource"
)

const (
	StatusError = "error"
	StatusOK    = "ok"
)

// Target is one configured probe entry. HTTP groups use URL; DB uses Query.
type Target struct {
	Group    Group
	Name     string
	URL      string
	Query    string
	Critical bool
	MinRows  int
}

// ID is the identifier alerts and reports use for the target.
func (t Target) ID() string {
	if t.Group == GroupDB {
		return t.Query
	}
	return t.URL
}

// CheckResult is the outcome of one probe invocation.
//
// LatencyMs is nil when the probe errored before a response was received
// (network error, timeout, query error). It is set for every success and for
// HTTP responses with a 5xx status.
type CheckResult struct {
	Name      string    `json:"name"`
	Target    string    `json:"target"`
	Succeeded bool      `json:"succeeded"`
	LatencyMs *int64    `json:"latencyMs"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
	Critical  bool      `json:"critical"`
	Rows      *int      `json:"rows,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Latency returns the measured latency, or 0 when none was recorded.
func (r CheckResult) Latency() time.Duration {
	if r.LatencyMs == nil {
		return 0
	}
	return time.Duration(*r.LatencyMs) * time.Millisecond
}

func failed(t Target, reason string, err error, now time.Time) CheckResult {
	r := CheckResult{
		Name:      t.Name,
		Target:    t.ID(),
		Succeeded: false,
		Status:    StatusError,
		Reason:    reason,
		Critical:  t.Critical,
		Timestamp: now,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func ms(d time.Duration) *int64 {
	v := d.Milliseconds()
	return &v
}

// SystemMetrics is a point-in-time snapshot of the monitor's own process.
type SystemMetrics struct {
	HeapUsedMb    float64 `json:"heapUsedMb"`
	HeapTotalMb   float64 `json:"heapTotalMb"`
	ExternalMb    float64 `json:"externalMb"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

func (m SystemMetrics) HeapRatio() float64 {
	if m.HeapTotalMb <= 0 {
		return 0
	}
	return m.HeapUsedMb / m.HeapTotalMb
}

// utcNow stamps results in UTC so persisted reports compare equal after decoding.
func utcNow() time.Time {
	return time.Now().UTC()
}
