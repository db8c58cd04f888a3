package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	middle "project-pulse/internals/middleware"
	"project-pulse/internals/modules/alert"
	"project-pulse/internals/modules/report"
	"project-pulse/internals/modules/scheduler"
	"project-pulse/pkg/apperror"
	"project-pulse/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const defaultHistoryLimit = 50

type ReportReader interface {
	Latest(kind report.Kind, out any) (bool, error)
}

type AlertReader interface {
	Stats() alert.Statistics
	History() []alert.HistoryEntry
}

type RunTrigger interface {
	Trigger(ctx context.Context, kind scheduler.Kind) error
}

type Handler struct {
	reports   ReportReader
	alerts    AlertReader
	runs      RunTrigger
	validator *validator.Validate
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewHandler(reports ReportReader, alerts AlertReader, runs RunTrigger, validator *validator.Validate, logger *zerolog.Logger) *Handler {
	return &Handler{
		reports:   reports,
		alerts:    alerts,
		runs:      runs,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	utils.WriteJSON(w, http.StatusOK, reqID, utils.StatusAlive, LivenessResponse{
		Status:    "ok",
		Timestamp: h.now().UTC(),
	})
}

// GetReport returns the newest persisted report of the kind in the path.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	const op = "handler.status.get_report"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	kind := report.Kind(chi.URLParam(r, "kind"))
	msg, ok := reportMessages[kind]
	if !ok {
		utils.WriteError(w, http.StatusNotFound, reqID, apperror.NotFound, "unknown report kind")
		return
	}

	var raw json.RawMessage
	found, err := h.reports.Latest(kind, &raw)
	if err != nil {
		utils.FromAppError(w, reqID, utils.WrapStoreError(op, err, h.logger))
		return
	}
	if !found {
		utils.WriteError(w, http.StatusNotFound, reqID, apperror.NotFound, "no "+string(kind)+" report yet")
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, msg, raw)
}

func (h *Handler) GetAlertStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	utils.WriteJSON(w, http.StatusOK, reqID, utils.AlertStatsFetched, h.alerts.Stats())
}

// ListAlertHistory returns the newest history entries first.
// Query: ?limit=50&type=error&severity=critical
func (h *Handler) ListAlertHistory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	q := HistoryQuery{
		Limit:    defaultHistoryLimit,
		Type:     r.URL.Query().Get("type"),
		Severity: r.URL.Query().Get("severity"),
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "limit must be a number")
			return
		}
		q.Limit = n
	}
	if err := h.validator.Struct(q); err != nil {
		utils.WriteValidationError(w, reqID, err)
		return
	}

	all := h.alerts.History()
	entries := make([]alert.HistoryEntry, 0, q.Limit)
	for i := len(all) - 1; i >= 0 && len(entries) < q.Limit; i-- {
		e := all[i]
		if q.Type != "" && string(e.Type) != q.Type {
			continue
		}
		if q.Severity != "" && string(e.Severity) != q.Severity {
			continue
		}
		entries = append(entries, e)
	}

	utils.WriteJSON(w, http.StatusOK, reqID, utils.AlertHistoryListed, HistoryResponse{
		Total:   len(all),
		Entries: entries,
	})
}

// TriggerRun starts a battery outside its schedule. The run continues after
// the response is written.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	kind := scheduler.Kind(chi.URLParam(r, "kind"))
	by := ""
	if op, ok := middle.OperatorFromContext(ctx); ok {
		by = op.Subject
	}

	err := h.runs.Trigger(h.logger.With().Str("request_id", reqID).Str("triggered_by", by).Logger().WithContext(ctx), kind)
	switch {
	case errors.Is(err, scheduler.ErrUnknownKind):
		utils.WriteError(w, http.StatusNotFound, reqID, apperror.NotFound, "unknown run kind")
		return
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		utils.WriteError(w, http.StatusConflict, reqID, apperror.Conflict, string(kind)+" is already running")
		return
	case err != nil:
		utils.FromAppError(w, reqID, err)
		return
	}

	h.logger.Info().Str("request_id", reqID).Str("kind", string(kind)).Str("triggered_by", by).Msg("manual run triggered")
	utils.WriteJSON(w, http.StatusAccepted, reqID, utils.RunAccepted, RunResponse{Kind: string(kind), TriggeredBy: by})
}

var reportMessages = map[report.Kind]string{
	report.KindHealth:      utils.HealthReportFound,
	report.KindPerformance: utils.PerfReportFound,
	report.KindResilience:  utils.ReportFound,
	report.KindLoad:        utils.ReportFound,
}
