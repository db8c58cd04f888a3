package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"project-pulse/internals/modules/alert"
	"project-pulse/internals/modules/probe"
	"project-pulse/pkg/httpclient"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nop = zerolog.Nop()

var calm = probe.StaticSampler{HeapUsedMb: 40, HeapTotalMb: 100}

func backend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/clients", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/api/projects", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/finance", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(120 * time.Millisecond)
		w.Write([]byte(`<html></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type stubDB struct {
	rows  int
	panic bool
}

func (s stubDB) Run(_ context.Context, t probe.Target, _ time.Duration) probe.CheckResult {
	if s.panic {
		panic("driver exploded")
	}
	lat := int64(5)
	rows := s.rows
	return probe.CheckResult{Name: t.Name, Target: t.ID(), Succeeded: true, LatencyMs: &lat, Status: probe.StatusOK, Critical: t.Critical, Rows: &rows}
}

func evaluator(t *testing.T, srv *httptest.Server, targets probe.TargetList, db probe.Prober, sampler probe.ResourceSampler) *Evaluator {
	t.Helper()
	return NewEvaluator(Options{
		Suite: &probe.Suite{
			HTTP:     probe.NewHTTPProber(httpclient.NewHttpClient(), srv.URL),
			DB:       db,
			Timeouts: probe.Timeouts{API: time.Second, Page: time.Second, DB: time.Second},
		},
		Targets:    targets,
		Thresholds: probe.Thresholds{APIMs: 3000, PageMs: 5000, DBMs: 3000},
		Sampler:    sampler,
		Logger:     &nop,
	})
}

func TestRun_CriticalFailureEndToEnd(t *testing.T) {
	srv := backend(t)
	targets := probe.TargetList{API: []probe.Target{
		{Group: probe.GroupAPI, Name: "Projects", URL: "/api/projects", Critical: true},
	}}

	snap := evaluator(t, srv, targets, nil, calm).Run(context.Background())

	assert.Equal(t, OverallCritical, snap.Overall)
	require.Len(t, snap.Alerts, 1)
	a := snap.Alerts[0]
	assert.Equal(t, alert.TypeError, a.Type)
	assert.Equal(t, alert.SeverityCritical, a.Severity)
	assert.Equal(t, "/api/projects", a.Endpoint)

	svc := alert.NewAlertService(context.Background(), alert.Policy{}, alert.NewFileHistory(t.TempDir()+"/history.json"), nil, &nop)
	svc.Process(context.Background(), snap.Alerts)

	h := svc.History()
	require.Len(t, h, 1)
	assert.True(t, h[0].Sent)
	assert.Equal(t, "/api/projects", h[0].Endpoint)
}

func TestRun_NonCriticalFailureDoesNotEscalate(t *testing.T) {
	srv := backend(t)
	targets := probe.TargetList{API: []probe.Target{
		{Group: probe.GroupAPI, Name: "Projects", URL: "/api/projects", Critical: false},
	}}

	snap := evaluator(t, srv, targets, nil, calm).Run(context.Background())

	require.Len(t, snap.Checks, 2)
	assert.False(t, snap.Checks[0].Succeeded)
	assert.NotEqual(t, OverallCritical, snap.Overall)
	assert.Empty(t, snap.Alerts)
}

func TestRun_SlowButSuccessfulRaisesWarning(t *testing.T) {
	srv := backend(t)
	targets := probe.TargetList{
		API:   []probe.Target{{Group: probe.GroupAPI, Name: "Clients", URL: "/api/clients", Critical: true}},
		Pages: []probe.Target{{Group: probe.GroupPage, Name: "Dashboard", URL: "/dashboard"}},
	}
	e := evaluator(t, srv, targets, nil, calm)
	e.thresholds.PageMs = 50

	snap := e.Run(context.Background())

	assert.Equal(t, OverallWarning, snap.Overall)
	require.Len(t, snap.Alerts, 1)
	a := snap.Alerts[0]
	assert.Equal(t, alert.TypePerformance, a.Type)
	assert.Equal(t, alert.SeverityWarning, a.Severity)
	assert.Equal(t, "/dashboard", a.Page)
	assert.GreaterOrEqual(t, a.LoadTime, 100.0)
}

func TestRun_UnauthorizedCountsAsHealthy(t *testing.T) {
	srv := backend(t)
	targets := probe.TargetList{API: []probe.Target{
		{Group: probe.GroupAPI, Name: "Finance", URL: "/api/finance", Critical: true},
	}}

	snap := evaluator(t, srv, targets, nil, calm).Run(context.Background())
	assert.Equal(t, OverallHealthy, snap.Overall)
}

func TestRun_HeapPressure(t *testing.T) {
	srv := backend(t)
	hot := probe.StaticSampler{HeapUsedMb: 95, HeapTotalMb: 100}

	snap := evaluator(t, srv, probe.TargetList{}, nil, hot).Run(context.Background())

	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, alert.TypeResource, snap.Alerts[0].Type)
	assert.Equal(t, alert.SeverityCritical, snap.Alerts[0].Severity)
	assert.InDelta(t, 95.0, snap.Alerts[0].MemoryUsage, 0.01)
	// the resource check itself is never critical
	assert.Equal(t, OverallWarning, snap.Overall)
}

func TestRun_PanickingProbeDoesNotAbortBatch(t *testing.T) {
	srv := backend(t)
	targets := probe.TargetList{
		DB:  []probe.Target{{Group: probe.GroupDB, Name: "clients", Query: "SELECT 1", Critical: true}},
		API: []probe.Target{{Group: probe.GroupAPI, Name: "Clients", URL: "/api/clients"}},
	}

	snap := evaluator(t, srv, targets, stubDB{panic: true}, calm).Run(context.Background())

	require.Len(t, snap.Checks, 3)
	assert.True(t, snap.Checks[0].Succeeded)
	assert.False(t, snap.Checks[1].Succeeded)
	assert.Equal(t, probe.ReasonPanic, snap.Checks[1].Reason)
	assert.Nil(t, snap.Checks[1].LatencyMs)
	assert.Equal(t, OverallCritical, snap.Overall)
	assert.Equal(t, "SELECT 1", snap.Alerts[0].Query)
}

func TestRun_TooFewRows(t *testing.T) {
	srv := backend(t)
	targets := probe.TargetList{DB: []probe.Target{
		{Group: probe.GroupDB, Name: "active clients", Query: "SELECT id FROM clients", MinRows: 1},
	}}

	snap := evaluator(t, srv, targets, stubDB{rows: 0}, calm).Run(context.Background())

	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, alert.TypeData, snap.Alerts[0].Type)
	assert.Equal(t, alert.SeverityWarning, snap.Alerts[0].Severity)
	assert.Equal(t, OverallWarning, snap.Overall)
}

type stubRollback struct{ called bool }

func (s *stubRollback) RunRollback(_ context.Context, stmt string, _ time.Duration) probe.CheckResult {
	s.called = true
	return probe.CheckResult{Name: "Transaction rollback", Target: stmt, Succeeded: false, Status: probe.StatusError}
}

func TestRun_RollbackProbeIsRecorded(t *testing.T) {
	srv := backend(t)
	rb := &stubRollback{}
	e := evaluator(t, srv, probe.TargetList{}, nil, calm)
	e.rollback = Rollback{Enabled: true, Statement: "INSERT INTO probe VALUES (1)", Prober: rb}

	snap := e.Run(context.Background())

	assert.True(t, rb.called)
	require.Len(t, snap.Checks, 2)
	assert.Equal(t, "Transaction rollback", snap.Checks[0].Name)
	assert.Equal(t, OverallHealthy, snap.Overall)
}

type panickingRollback struct{}

func (panickingRollback) RunRollback(context.Context, string, time.Duration) probe.CheckResult {
	panic("tx handle closed")
}

func TestRun_RollbackPanicBecomesFailedCheck(t *testing.T) {
	srv := backend(t)
	targets := probe.TargetList{API: []probe.Target{
		{Group: probe.GroupAPI, Name: "Clients", URL: "/api/clients", Critical: true},
	}}
	e := evaluator(t, srv, targets, nil, calm)
	e.rollback = Rollback{Enabled: true, Statement: "INSERT INTO audit VALUES (1)", Prober: panickingRollback{}}

	var snap Snapshot
	require.NotPanics(t, func() { snap = e.Run(context.Background()) })

	require.Len(t, snap.Checks, 3)
	rb := snap.Checks[1]
	assert.Equal(t, "Transaction rollback", rb.Name)
	assert.False(t, rb.Succeeded)
	assert.Equal(t, probe.ReasonPanic, rb.Reason)
	assert.True(t, snap.Checks[0].Succeeded)
	assert.True(t, snap.Checks[2].Succeeded)
}

func TestDeriveOverall(t *testing.T) {
	ok := probe.CheckResult{Succeeded: true, Critical: true}
	softFail := probe.CheckResult{Succeeded: false, Critical: false}
	hardFail := probe.CheckResult{Succeeded: false, Critical: true}
	warn := alert.Alert{Type: alert.TypePerformance, Severity: alert.SeverityWarning}

	tests := []struct {
		name   string
		checks []probe.CheckResult
		alerts []alert.Alert
		want   Overall
	}{
		{"empty", nil, nil, OverallHealthy},
		{"all ok", []probe.CheckResult{ok}, nil, OverallHealthy},
		{"soft failure without alerts", []probe.CheckResult{ok, softFail}, nil, OverallHealthy},
		{"alerts only", []probe.CheckResult{ok}, []alert.Alert{warn}, OverallWarning},
		{"critical failure", []probe.CheckResult{ok, hardFail}, nil, OverallCritical},
		{"critical beats warning", []probe.CheckResult{hardFail}, []alert.Alert{warn}, OverallCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveOverall(tt.checks, tt.alerts))
		})
	}
}
