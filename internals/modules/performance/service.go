package performance

import (
	"context"
	"fmt"
	"time"

	"project-pulse/internals/modules/alert"
	"project-pulse/internals/modules/health"
	"project-pulse/internals/modules/probe"

	"github.com/rs/zerolog"
)

const (
	DefaultSamples = 3
	DefaultDelay   = 100 * time.Millisecond
)

type Options struct {
	Suite      *probe.Suite
	Targets    probe.TargetList
	Thresholds probe.Thresholds
	HeapRatio  float64
	Samples    int
	Delay      time.Duration
	Sampler    probe.ResourceSampler
	Logger     *zerolog.Logger
	Now        func() time.Time
}

// Sampler measures every target several times and reports averaged latency.
type Sampler struct {
	suite      *probe.Suite
	targets    probe.TargetList
	thresholds probe.Thresholds
	heapRatio  float64
	samples    int
	delay      time.Duration
	resources  probe.ResourceSampler
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewSampler(o Options) *Sampler {
	if o.Samples <= 0 {
		o.Samples = DefaultSamples
	}
	if o.Delay < 0 {
		o.Delay = DefaultDelay
	}
	if o.HeapRatio <= 0 {
		o.HeapRatio = 0.9
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Sampler == nil {
		o.Sampler = probe.NewRuntimeSampler()
	}
	return &Sampler{
		suite:      o.Suite,
		targets:    o.Targets,
		thresholds: o.Thresholds,
		heapRatio:  o.HeapRatio,
		samples:    o.Samples,
		delay:      o.Delay,
		resources:  o.Sampler,
		logger:     o.Logger,
		now:        o.Now,
	}
}

func (s *Sampler) Run(ctx context.Context) Snapshot {
	snap := Snapshot{
		Timestamp:   s.now().UTC(),
		APIMetrics:  []TargetMetrics{},
		DBMetrics:   []TargetMetrics{},
		PageMetrics: []TargetMetrics{},
		Alerts:      []alert.Alert{},
	}

	groups := []struct {
		targets []probe.Target
		out     *[]TargetMetrics
	}{
		{s.targets.API, &snap.APIMetrics},
		{s.targets.DB, &snap.DBMetrics},
		{s.targets.Pages, &snap.PageMetrics},
	}
	for _, g := range groups {
		for _, t := range g.targets {
			tm := aggregate(t, s.measure(ctx, t))
			*g.out = append(*g.out, tm)
			if a, ok := s.slowAlert(t, tm); ok {
				snap.Alerts = append(snap.Alerts, a)
			}
		}
	}

	snap.SystemMetrics = s.resources.Sample()
	if snap.SystemMetrics.HeapRatio() > s.heapRatio {
		snap.Alerts = append(snap.Alerts, health.HeapAlert(snap.SystemMetrics))
	}

	s.logger.Info().
		Int("targets", len(snap.APIMetrics)+len(snap.DBMetrics)+len(snap.PageMetrics)).
		Int("alerts", len(snap.Alerts)).
		Float64("heap_used_mb", snap.SystemMetrics.HeapUsedMb).
		Msg("performance sampling completed")

	return snap
}

// measure takes the configured number of sequential samples, pausing between
// them. A cancelled context cuts the series short.
func (s *Sampler) measure(ctx context.Context, t probe.Target) []probe.CheckResult {
	out := make([]probe.CheckResult, 0, s.samples)
	for i := range s.samples {
		if i > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(s.delay):
			}
		}
		out = append(out, s.suite.Run(ctx, t))
	}
	return out
}

func (s *Sampler) slowAlert(t probe.Target, tm TargetMetrics) (alert.Alert, bool) {
	limit := s.thresholds.For(t.Group)
	if tm.AvgLatencyMs == nil || limit <= 0 || *tm.AvgLatencyMs <= float64(limit) {
		return alert.Alert{}, false
	}

	a := alert.Alert{
		Type:     alert.TypePerformance,
		Severity: alert.SeverityWarning,
		Message: fmt.Sprintf("Slow %s average: %s averaged %.0fms over %d samples (threshold %dms)",
			t.Group, t.Name, *tm.AvgLatencyMs, len(tm.Measurements), limit),
	}
	return a.OnTarget(string(t.Group), t.ID(), *tm.AvgLatencyMs), true
}
