package status

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/v1. guard protects the run trigger; without a
// guard the trigger route is not registered.
func Routes(h *Handler, guard ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/status/{kind}", h.GetReport)
	r.Get("/alerts/stats", h.GetAlertStats)
	r.Get("/alerts/history", h.ListAlertHistory)

	if len(guard) > 0 {
		r.With(guard...).Post("/runs/{kind}", h.TriggerRun)
	}

	return r
}

/*
- GET: /status/{kind}  -> latest report, kind in health|performance|resilience|load
	req auth : false
	resp : report JSON, 404 when none yet

- GET: /alerts/stats -> policy engine statistics
	req auth : false

- GET: /alerts/history?limit={}&type={}&severity={} -> newest first
	req auth : false

- POST: /runs/{kind} -> start a battery now
	req auth : true (operator role)
	resp : 202, 404 unknown kind, 409 already running
*/
