package health

import (
	"context"
	"fmt"
	"time"

	"project-pulse/internals/modules/alert"
	"project-pulse/internals/modules/probe"

	"github.com/rs/zerolog"
)

type RollbackProber interface {
	RunRollback(ctx context.Context, statement string, timeout time.Duration) probe.CheckResult
}

type Rollback struct {
	Enabled   bool
	Statement string
	Prober    RollbackProber
}

type Options struct {
	Suite      *probe.Suite
	Targets    probe.TargetList
	Thresholds probe.Thresholds
	HeapRatio  float64
	Sampler    probe.ResourceSampler
	Rollback   Rollback
	Logger     *zerolog.Logger
	Now        func() time.Time
}

// Evaluator runs the health battery: every configured target in order, the
// optional rollback probe, then the resource check.
type Evaluator struct {
	suite      *probe.Suite
	targets    probe.TargetList
	thresholds probe.Thresholds
	heapRatio  float64
	sampler    probe.ResourceSampler
	rollback   Rollback
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewEvaluator(o Options) *Evaluator {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.HeapRatio <= 0 {
		o.HeapRatio = 0.9
	}
	return &Evaluator{
		suite:      o.Suite,
		targets:    o.Targets,
		thresholds: o.Thresholds,
		heapRatio:  o.HeapRatio,
		sampler:    o.Sampler,
		rollback:   o.Rollback,
		logger:     o.Logger,
		now:        o.Now,
	}
}

func (e *Evaluator) Run(ctx context.Context) Snapshot {
	snap := Snapshot{
		Timestamp: e.now().UTC(),
		Checks:    []probe.CheckResult{},
		Alerts:    []alert.Alert{},
	}

	for _, t := range e.targets.All() {
		r := e.suite.Run(ctx, t)
		snap.Checks = append(snap.Checks, r)
		snap.Alerts = append(snap.Alerts, e.evaluate(t, r)...)

		e.logger.Debug().
			Str("group", string(t.Group)).
			Str("target", t.Name).
			Bool("succeeded", r.Succeeded).
			Str("status", r.Status).
			Dur("latency", r.Latency()).
			Msg("health probe finished")
	}

	if e.rollback.Enabled && e.rollback.Prober != nil {
		snap.Checks = append(snap.Checks, e.runRollback(ctx))
	}

	if e.sampler != nil {
		m := e.sampler.Sample()
		r := probe.CheckResources(m, e.heapRatio, e.now().UTC())
		snap.Checks = append(snap.Checks, r)
		if !r.Succeeded {
			snap.Alerts = append(snap.Alerts, HeapAlert(m))
		}
	}

	snap.Overall = DeriveOverall(snap.Checks, snap.Alerts)

	e.logger.Info().
		Str("overall", string(snap.Overall)).
		Int("checks", len(snap.Checks)).
		Int("alerts", len(snap.Alerts)).
		Msg("health check completed")

	return snap
}

func (e *Evaluator) evaluate(t probe.Target, r probe.CheckResult) []alert.Alert {
	var out []alert.Alert
	latency := float64(r.Latency().Milliseconds())

	switch {
	case !r.Succeeded && t.Critical:
		out = append(out, alert.Alert{
			Type:     alert.TypeError,
			Severity: alert.SeverityCritical,
			Message:  fmt.Sprintf("%s failed: %s (%s)", label(t.Group), t.Name, failure(r)),
		}.OnTarget(string(t.Group), t.ID(), 0))

	case r.Succeeded:
		if limit := e.thresholds.For(t.Group); limit > 0 && int64(latency) > limit {
			out = append(out, alert.Alert{
				Type:     alert.TypePerformance,
				Severity: alert.SeverityWarning,
				Message:  fmt.Sprintf("Slow %s: %s took %.0fms (threshold %dms)", label(t.Group), t.Name, latency, limit),
			}.OnTarget(string(t.Group), t.ID(), latency))
		}
		if t.Group == probe.GroupDB && t.MinRows > 0 && r.Rows != nil && *r.Rows < t.MinRows {
			out = append(out, alert.Alert{
				Type:     alert.TypeData,
				Severity: alert.SeverityWarning,
				Message:  fmt.Sprintf("Query %s returned %d rows, expected at least %d", t.Name, *r.Rows, t.MinRows),
			}.OnTarget(string(t.Group), t.ID(), latency))
		}
	}
	return out
}

// HeapAlert is raised when the heap ratio crosses the configured ceiling.
func HeapAlert(m probe.SystemMetrics) alert.Alert {
	return alert.Alert{
		Type:        alert.TypeResource,
		Severity:    alert.SeverityCritical,
		Message:     fmt.Sprintf("High memory usage: %.0fMB of %.0fMB heap in use", m.HeapUsedMb, m.HeapTotalMb),
		MemoryUsage: m.HeapRatio() * 100,
	}
}

func label(g probe.Group) string {
	switch g {
	case probe.GroupAPI:
		return "API endpoint"
	case probe.GroupPage:
		return "page"
	case probe.GroupDB:
		return "database query"
	}
	return string(g)
}

func failure(r probe.CheckResult) string {
	if r.Reason == probe.ReasonServerError {
		return "HTTP " + r.Status
	}
	if r.Reason != "" {
		return r.Reason
	}
	return r.Status
}

func (e *Evaluator) runRollback(ctx context.Context) (r probe.CheckResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r = probe.Recovered(probe.RollbackTarget(e.rollback.Statement), rec)
			e.logger.Error().Interface("panic", rec).Msg("rollback check panicked")
		}
	}()
	return e.rollback.Prober.RunRollback(ctx, e.rollback.Statement, e.suite.Timeouts.For(probe.GroupDB))
}
