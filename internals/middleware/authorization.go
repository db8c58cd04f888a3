package middle

import (
	"net/http"
	"slices"

	"project-pulse/pkg/apperror"
	"project-pulse/pkg/utils"

	"github.com/go-chi/chi/v5/middleware"
)

// RequireRole lets the request through only when the authenticated operator
// holds one of roles. It must run after AuthMiddleware.Handle.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := middleware.GetReqID(ctx)
			op, ok := OperatorFromContext(ctx)
			if !ok {
				utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "operator is unauthorised")
				return
			}

			if !slices.Contains(roles, op.Role) {
				utils.WriteError(w, http.StatusForbidden, reqID, apperror.Forbidden, "operator does not have access")
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}
