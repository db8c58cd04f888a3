package middle

/**
- Work of this file -> Auth package:
	- Validates token
	- Stores the operator in context
	- Exposes a helper to retrieve the operator
**/

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"project-pulse/internals/security"
	"project-pulse/pkg/apperror"
	"project-pulse/pkg/utils"

	"github.com/go-chi/chi/v5/middleware"
)

type operatorCtxKeyType struct{}

var operatorCtxKey = operatorCtxKeyType{}

// Operator is the authenticated caller of a protected route.
type Operator struct {
	Subject string
	Email   string
	Role    string
}

type TokenValidator interface {
	ValidateAccessToken(token string) (*security.RequestClaims, error)
}

type AuthMiddleware struct {
	tokenSvc TokenValidator
}

func NewAuthMiddleware(tokenSvc TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		tokenSvc: tokenSvc,
	}
}

func (a *AuthMiddleware) Handle(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := middleware.GetReqID(ctx)

		token, err := a.extractBearerToken(r)
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, err.Error())
			return
		}

		claims, err := a.tokenSvc.ValidateAccessToken(token)
		if err != nil {
			utils.FromAppError(w, reqID, err)
			return
		}

		if claims.Subject == "" {
			utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "token has no subject")
			return
		}

		op := &Operator{
			Subject: claims.Subject,
			Email:   claims.Email,
			Role:    claims.Role,
		}

		next.ServeHTTP(w, r.WithContext(WithOperator(ctx, op)))
	}

	return http.HandlerFunc(fn)
}

func (*AuthMiddleware) extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")

	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid Authorization header")
	}

	return parts[1], nil
}

func OperatorFromContext(ctx context.Context) (*Operator, bool) {
	op, ok := ctx.Value(operatorCtxKey).(*Operator)
	return op, ok
}

// WithOperator stores op in ctx the way Handle does.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorCtxKey, op)
}
