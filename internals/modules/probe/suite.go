package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"project-pulse/config"
	"project-pulse/pkg/metrics"
)

type Prober interface {
	Run(ctx context.Context, t Target, timeout time.Duration) CheckResult
}

const defaultTimeout = 10 * time.Second

type Timeouts struct {
	API  time.Duration
	Page time.Duration
	DB   time.Duration
}

func TimeoutsFromConfig(c config.TimeoutsConfig) Timeouts {
	return Timeouts{API: c.API, Page: c.Page, DB: c.DB}
}

func (t Timeouts) For(g Group) time.Duration {
	var d time.Duration
	switch g {
	case GroupAPI:
		d = t.API
	case GroupPage:
		d = t.Page
	case GroupDB:
		d = t.DB
	}
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

// Thresholds are latency ceilings in milliseconds above which a successful
// check is considered slow.
type Thresholds struct {
	APIMs  int64
	PageMs int64
	DBMs   int64
}

func (t Thresholds) For(g Group) int64 {
	switch g {
	case GroupAPI:
		return t.APIMs
	case GroupPage:
		return t.PageMs
	case GroupDB:
		return t.DBMs
	}
	return 0
}

// Suite routes a target to the prober for its group and never panics.
type Suite struct {
	HTTP     Prober
	DB       Prober
	Timeouts Timeouts
	Metrics  *metrics.Metrics
}

var errNoProber = errors.New("no prober configured for target group")

// Recovered turns a recovered panic value into a failed result for t.
func Recovered(t Target, rec any) CheckResult {
	return failed(t, ReasonPanic, fmt.Errorf("probe panicked: %v", rec), utcNow())
}

func (s *Suite) Run(ctx context.Context, t Target) (r CheckResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r = Recovered(t, rec)
		}
		s.Metrics.ObserveProbe(string(t.Group), t.Name, r.Succeeded, r.Reason, r.Latency())
	}()

	var p Prober
	switch t.Group {
	case GroupAPI, GroupPage:
		p = s.HTTP
	case GroupDB:
		p = s.DB
	}
	if p == nil {
		return failed(t, ReasonUnknown, errNoProber, utcNow())
	}
	return p.Run(ctx, t, s.Timeouts.For(t.Group))
}

// TargetList is the ordered, grouped set of probe targets.
type TargetList struct {
	API   []Target
	Pages []Target
	DB    []Target
}

func TargetsFromConfig(c config.TargetsConfig) TargetList {
	return TargetList{
		API:   convert(GroupAPI, c.API),
		Pages: convert(GroupPage, c.Pages),
		DB:    convert(GroupDB, c.DB),
	}
}

// All returns every target in probe order: API, pages, then DB.
func (l TargetList) All() []Target {
	out := make([]Target, 0, len(l.API)+len(l.Pages)+len(l.DB))
	out = append(out, l.API...)
	out = append(out, l.Pages...)
	return append(out, l.DB...)
}

func convert(g Group, in []config.Target) []Target {
	out := make([]Target, 0, len(in))
	for _, c := range in {
		out = append(out, Target{
			Group:    g,
			Name:     c.Name,
			URL:      c.URL,
			Query:    c.Query,
			Critical: c.Critical,
			MinRows:  c.MinRows,
		})
	}
	return out
}
