package probe

import (
	"runtime"
	"time"
)

// ResourceSampler snapshots the monitor's own memory and uptime.
type ResourceSampler interface {
	Sample() SystemMetrics
}

type RuntimeSampler struct {
	started time.Time
}

func NewRuntimeSampler() *RuntimeSampler {
	return &RuntimeSampler{started: time.Now()}
}

func (s *RuntimeSampler) Sample() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		HeapUsedMb:    toMb(m.HeapAlloc),
		HeapTotalMb:   toMb(m.HeapSys),
		ExternalMb:    toMb(m.StackSys + m.OtherSys),
		UptimeSeconds: time.Since(s.started).Seconds(),
	}
}

// StaticSampler always reports the same metrics.
type StaticSampler SystemMetrics

func (s StaticSampler) Sample() SystemMetrics { return SystemMetrics(s) }

// CheckResources turns a snapshot into a CheckResult that fails when the heap
// ratio exceeds maxRatio. Resource checks are never critical.
func CheckResources(m SystemMetrics, maxRatio float64, now time.Time) CheckResult {
	r := CheckResult{
		Name:      "Memory usage",
		Target:    "process",
		Succeeded: m.HeapRatio() <= maxRatio,
		Status:    StatusOK,
		Timestamp: now,
	}
	if r.Succeeded {
		r.LatencyMs = ms(0)
	} else {
		r.Status = StatusError
		r.Reason = ReasonHeapPressure
	}
	return r
}

func toMb(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
