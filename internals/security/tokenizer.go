package security

import (
	"errors"
	"time"

	"project-pulse/config"
	"project-pulse/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSecret = errors.New("auth.secret is not set")

type TokenService struct {
	secret    string
	expiryMin int
	now       func() time.Time
}

// NewTokenService refuses an empty secret so the trigger API is never
// guarded by a guessable key.
func NewTokenService(authCfg *config.AuthConfig) (*TokenService, error) {
	if authCfg.Secret == "" {
		return nil, ErrNoSecret
	}
	return &TokenService{
		secret:    authCfg.Secret,
		expiryMin: authCfg.ExpiryMin,
		now:       time.Now,
	}, nil
}

func (ts *TokenService) GenerateAccessToken(payload RequestClaims) (string, error) {
	now := ts.now()
	expiryTime := now.Add(time.Duration(ts.expiryMin) * time.Minute)

	payload.ExpiresAt = jwt.NewNumericDate(expiryTime)
	payload.IssuedAt = jwt.NewNumericDate(now)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signedToken, err := token.SignedString([]byte(ts.secret))
	if err != nil {
		return "", err
	}

	return signedToken, nil
}

func (ts *TokenService) ValidateAccessToken(accessToken string) (*RequestClaims, error) {
	const op string = "security.token.validate_access_token"

	claims := &RequestClaims{}

	token, err := jwt.ParseWithClaims(
		accessToken,
		claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(ts.secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(ts.now),
	)

	if err != nil || !token.Valid {
		return nil, &apperror.Error{
			Kind:    apperror.Unauthorised,
			Op:      op,
			Message: "invalid token",
			Err:     err,
		}
	}

	return claims, nil
}
