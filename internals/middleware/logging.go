package middle

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func Logger(log *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				reqID := middleware.GetReqID(r.Context())

				ev := log.Info()
				if ww.Status() >= http.StatusInternalServerError {
					ev = log.Error()
				}
				ev = ev.Str("request_id", reqID).
					Str("method", r.Method).
					Str("path", r.URL.Path)
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					ev = ev.Str("route", rctx.RoutePattern())
				}
				ev.
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
