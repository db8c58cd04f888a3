package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	middle "project-pulse/internals/middleware"
	"project-pulse/internals/modules/alert"
	"project-pulse/internals/modules/health"
	"project-pulse/internals/modules/report"
	"project-pulse/internals/modules/scheduler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nop = zerolog.Nop()

type stubAlerts struct {
	stats   alert.Statistics
	history []alert.HistoryEntry
}

func (s stubAlerts) Stats() alert.Statistics       { return s.stats }
func (s stubAlerts) History() []alert.HistoryEntry { return s.history }

type stubRuns struct {
	err  error
	kind scheduler.Kind
}

func (s *stubRuns) Trigger(_ context.Context, kind scheduler.Kind) error {
	s.kind = kind
	return s.err
}

type brokenReports struct{}

func (brokenReports) Latest(report.Kind, any) (bool, error) {
	return false, errors.New("permission denied")
}

// asOperator stands in for the JWT middleware.
func asOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middle.WithOperator(r.Context(), &middle.Operator{Subject: "oncall"})))
	})
}

func router(h *Handler, guard ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/v1", Routes(h, guard...))
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind string `json:"kind"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestGetReport(t *testing.T) {
	store := report.NewStore(t.TempDir(), &nop)
	h := router(NewHandler(store, stubAlerts{}, &stubRuns{}, validator.New(), &nop))

	code, env := do(t, h, http.MethodGet, "/api/v1/status/health")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Kind)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.Save(context.Background(), report.KindHealth, health.Snapshot{Timestamp: at, Overall: health.OverallWarning})
	require.NoError(t, err)

	code, env = do(t, h, http.MethodGet, "/api/v1/status/health")
	require.Equal(t, http.StatusOK, code)
	var snap health.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, health.OverallWarning, snap.Overall)

	code, _ = do(t, h, http.MethodGet, "/api/v1/status/performance")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, h, http.MethodGet, "/api/v1/status/bogus")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetReport_StoreFailure(t *testing.T) {
	h := router(NewHandler(brokenReports{}, stubAlerts{}, &stubRuns{}, validator.New(), &nop))

	code, env := do(t, h, http.MethodGet, "/api/v1/status/load")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, env.Success)
}

func TestAlertStatsAndHistory(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []alert.HistoryEntry{
		{ID: "1", Alert: alert.Alert{Type: alert.TypeError, Severity: alert.SeverityCritical}, Timestamp: at},
		{ID: "2", Alert: alert.Alert{Type: alert.TypePerformance, Severity: alert.SeverityWarning}, Timestamp: at.Add(time.Minute)},
		{ID: "3", Alert: alert.Alert{Type: alert.TypeError, Severity: alert.SeverityCritical}, Timestamp: at.Add(2 * time.Minute)},
	}
	alerts := stubAlerts{stats: alert.Statistics{Total: 3, Last24h: 3}, history: entries}
	h := router(NewHandler(report.NewStore(t.TempDir(), &nop), alerts, &stubRuns{}, validator.New(), &nop))

	code, env := do(t, h, http.MethodGet, "/api/v1/alerts/stats")
	require.Equal(t, http.StatusOK, code)
	var st alert.Statistics
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, 3, st.Total)

	code, env = do(t, h, http.MethodGet, "/api/v1/alerts/history?type=error&limit=1")
	require.Equal(t, http.StatusOK, code)
	var hist HistoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &hist))
	assert.Equal(t, 3, hist.Total)
	require.Len(t, hist.Entries, 1)
	assert.Equal(t, "3", hist.Entries[0].ID)

	for _, q := range []string{"limit=0", "limit=abc", "severity=info", "type=weird"} {
		code, _ = do(t, h, http.MethodGet, "/api/v1/alerts/history?"+q)
		assert.Equal(t, http.StatusBadRequest, code, q)
	}
}

func TestTriggerRun(t *testing.T) {
	runs := &stubRuns{}
	h := router(NewHandler(report.NewStore(t.TempDir(), &nop), stubAlerts{}, runs, validator.New(), &nop), asOperator)

	code, env := do(t, h, http.MethodPost, "/api/v1/runs/health")
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, scheduler.KindHealth, runs.kind)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "oncall", resp.TriggeredBy)

	runs.err = scheduler.ErrAlreadyRunning
	code, env = do(t, h, http.MethodPost, "/api/v1/runs/health")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", env.Error.Kind)

	runs.err = scheduler.ErrUnknownKind
	code, _ = do(t, h, http.MethodPost, "/api/v1/runs/bogus")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTriggerRun_NotMountedWithoutGuard(t *testing.T) {
	h := router(NewHandler(report.NewStore(t.TempDir(), &nop), stubAlerts{}, &stubRuns{}, validator.New(), &nop))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs/health", nil))
	assert.NotEqual(t, http.StatusAccepted, rec.Code)
}

func TestLiveness(t *testing.T) {
	hd := NewHandler(report.NewStore(t.TempDir(), &nop), stubAlerts{}, &stubRuns{}, validator.New(), &nop)
	r := chi.NewRouter()
	r.Get("/healthz", hd.Liveness)

	code, env := do(t, r, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}
