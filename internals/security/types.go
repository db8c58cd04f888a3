package security

import "github.com/golang-jwt/jwt/v5"

const (
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// RequestClaims identify the operator behind a manual run trigger. The
// subject lives in RegisteredClaims.Subject.
type RequestClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}
