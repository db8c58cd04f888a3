package middle

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type Middleware func(http.Handler) http.Handler

// EchoRequestID copies the request id assigned by middleware.RequestID onto
// the response so callers can correlate logs.
func EchoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}
