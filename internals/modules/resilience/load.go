package resilience

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"project-pulse/internals/modules/alert"
	"project-pulse/internals/modules/probe"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

type LoadTarget struct {
	Name         string   `json:"name"`
	Target       string   `json:"target"`
	Requests     int      `json:"requests"`
	Failures     int      `json:"failures"`
	ErrorRate    float64  `json:"errorRate"`
	AvgLatencyMs *float64 `json:"avgLatencyMs"`
	P95LatencyMs *float64 `json:"p95LatencyMs"`
}

type LoadReport struct {
	Timestamp   time.Time     `json:"timestamp"`
	Requests    int           `json:"requests"`
	Concurrency int           `json:"concurrency"`
	DurationMs  int64         `json:"durationMs"`
	Targets     []LoadTarget  `json:"targets"`
	Alerts      []alert.Alert `json:"alerts"`
}

type LoadOptions struct {
	Suite          *probe.Suite
	Targets        []probe.Target
	Requests       int
	Concurrency    int
	ErrorRateLimit float64
	Logger         *zerolog.Logger
	Now            func() time.Time
}

// LoadTester fires a bounded-concurrency burst of requests at each target.
type LoadTester struct {
	suite       *probe.Suite
	targets     []probe.Target
	requests    int
	concurrency int
	limit       float64
	logger      *zerolog.Logger
	now         func() time.Time
}

func NewLoadTester(o LoadOptions) *LoadTester {
	if o.Requests <= 0 {
		o.Requests = 50
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 10
	}
	if o.ErrorRateLimit <= 0 {
		o.ErrorRateLimit = 0.1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &LoadTester{
		suite:       o.Suite,
		targets:     o.Targets,
		requests:    o.Requests,
		concurrency: o.Concurrency,
		limit:       o.ErrorRateLimit,
		logger:      o.Logger,
		now:         o.Now,
	}
}

func (l *LoadTester) Run(ctx context.Context) LoadReport {
	start := time.Now()
	rep := LoadReport{
		Timestamp:   l.now().UTC(),
		Requests:    l.requests,
		Concurrency: l.concurrency,
		Targets:     []LoadTarget{},
		Alerts:      []alert.Alert{},
	}

	for _, t := range l.targets {
		lt := l.burst(ctx, t)
		rep.Targets = append(rep.Targets, lt)

		if lt.ErrorRate > l.limit {
			rep.Alerts = append(rep.Alerts, alert.Alert{
				Type:     alert.TypePerformance,
				Severity: alert.SeverityWarning,
				Message: fmt.Sprintf("High error rate under load: %s failed %d of %d requests (%.0f%%)",
					t.Name, lt.Failures, lt.Requests, lt.ErrorRate*100),
			}.OnTarget(string(t.Group), t.ID(), value(lt.AvgLatencyMs)))
		}

		l.logger.Info().
			Str("target", t.Name).
			Int("requests", lt.Requests).
			Int("failures", lt.Failures).
			Float64("error_rate", lt.ErrorRate).
			Msg("load burst finished")
	}

	rep.DurationMs = time.Since(start).Milliseconds()
	return rep
}

func (l *LoadTester) burst(ctx context.Context, t probe.Target) LoadTarget {
	var (
		mu        sync.Mutex
		failures  int
		latencies []float64
	)

	p := pool.New().WithMaxGoroutines(l.concurrency)
	for range l.requests {
		p.Go(func() {
			r := l.suite.Run(ctx, t)

			mu.Lock()
			defer mu.Unlock()
			if !r.Succeeded {
				failures++
				return
			}
			latencies = append(latencies, float64(r.Latency().Milliseconds()))
		})
	}
	p.Wait()

	lt := LoadTarget{
		Name:      t.Name,
		Target:    t.ID(),
		Requests:  l.requests,
		Failures:  failures,
		ErrorRate: float64(failures) / float64(l.requests),
	}
	if len(latencies) > 0 {
		sort.Float64s(latencies)
		var sum float64
		for _, v := range latencies {
			sum += v
		}
		avg := sum / float64(len(latencies))
		p95 := latencies[(len(latencies)*95+99)/100-1]
		lt.AvgLatencyMs, lt.P95LatencyMs = &avg, &p95
	}
	return lt
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
