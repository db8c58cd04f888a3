package scheduler

import (
	"context"
	"time"

	"project-pulse/config"
	"project-pulse/internals/modules/alert"
	"project-pulse/internals/modules/dashboard"
	"project-pulse/internals/modules/health"
	"project-pulse/internals/modules/performance"
	"project-pulse/internals/modules/report"
	"project-pulse/internals/modules/resilience"
	"project-pulse/pkg/metrics"

	"github.com/rs/zerolog"
)

type HealthRunner interface {
	Run(ctx context.Context) health.Snapshot
}

type PerformanceRunner interface {
	Run(ctx context.Context) performance.Snapshot
}

type ResilienceRunner interface {
	Run(ctx context.Context) resilience.Report
}

type LoadRunner interface {
	Run(ctx context.Context) resilience.LoadReport
}

type AlertProcessor interface {
	Process(ctx context.Context, alerts []alert.Alert) []alert.HistoryEntry
	Stats() alert.Statistics
	SendDigest(ctx context.Context) alert.Digest
}

type ReportStore interface {
	Save(ctx context.Context, kind report.Kind, v any) (string, error)
	Latest(kind report.Kind, out any) (bool, error)
	Prune(olderThan time.Duration) (int, error)
}

// Tasks wires each battery to the policy engine and report store. Every
// method is one orchestrator tick.
type Tasks struct {
	Health       HealthRunner
	Performance  PerformanceRunner
	Resilience   ResilienceRunner
	Load         LoadRunner
	Alerts       AlertProcessor
	Reports      ReportStore
	DashboardDir string
	Retention    time.Duration
	Metrics      *metrics.Metrics
	Logger       *zerolog.Logger
	Now          func() time.Time
}

// Register schedules every task on s using the configured cron specs.
func (t *Tasks) Register(s *Scheduler, cfg config.SchedulesConfig) error {
	for _, e := range []struct {
		kind Kind
		spec string
		fn   Job
	}{
		{KindHealth, cfg.Health, t.RunHealth},
		{KindPerformance, cfg.Performance, t.RunPerformance},
		{KindDashboard, cfg.Dashboard, t.RunDashboard},
		{KindResilience, cfg.Resilience, t.RunResilience},
		{KindLoad, cfg.Load, t.RunLoad},
		{KindDigest, cfg.Digest, t.RunDigest},
		{KindPrune, cfg.Prune, t.RunPrune},
	} {
		if err := s.Register(e.kind, e.spec, e.fn); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tasks) RunHealth(ctx context.Context) error {
	snap := t.Health.Run(ctx)
	t.Alerts.Process(ctx, snap.Alerts)
	t.Metrics.SetOverall(snap.Overall.Level())

	_, err := t.Reports.Save(ctx, report.KindHealth, snap)
	return err
}

func (t *Tasks) RunPerformance(ctx context.Context) error {
	snap := t.Performance.Run(ctx)
	t.Alerts.Process(ctx, snap.Alerts)

	_, err := t.Reports.Save(ctx, report.KindPerformance, snap)
	return err
}

func (t *Tasks) RunResilience(ctx context.Context) error {
	rep := t.Resilience.Run(ctx)
	t.Alerts.Process(ctx, rep.Alerts)

	_, err := t.Reports.Save(ctx, report.KindResilience, rep)
	return err
}

func (t *Tasks) RunLoad(ctx context.Context) error {
	rep := t.Load.Run(ctx)
	t.Alerts.Process(ctx, rep.Alerts)

	_, err := t.Reports.Save(ctx, report.KindLoad, rep)
	return err
}

// RunDashboard regenerates the dashboard from whatever data exists. Missing
// or unreadable reports render as empty sections.
func (t *Tasks) RunDashboard(ctx context.Context) error {
	var h *health.Snapshot
	var hs health.Snapshot
	if ok, err := t.Reports.Latest(report.KindHealth, &hs); err != nil {
		t.Logger.Warn().Err(err).Msg("latest health report unreadable, rendering without it")
	} else if ok {
		h = &hs
	}

	var p *performance.Snapshot
	var ps performance.Snapshot
	if ok, err := t.Reports.Latest(report.KindPerformance, &ps); err != nil {
		t.Logger.Warn().Err(err).Msg("latest performance report unreadable, rendering without it")
	} else if ok {
		p = &ps
	}

	st := t.Alerts.Stats()

	page, err := dashboard.Generate(h, p, &st, t.now())
	if err != nil {
		return err
	}
	return dashboard.Write(t.DashboardDir, page)
}

func (t *Tasks) RunDigest(ctx context.Context) error {
	t.Alerts.SendDigest(ctx)
	return nil
}

func (t *Tasks) RunPrune(context.Context) error {
	_, err := t.Reports.Prune(t.Retention)
	return err
}

func (t *Tasks) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}
