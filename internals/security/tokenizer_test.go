package security

import (
	"testing"
	"time"

	"project-pulse/config"
	"project-pulse/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := NewTokenService(&config.AuthConfig{ExpiryMin: 30})
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestToken_RoundTrip(t *testing.T) {
	ts, err := NewTokenService(&config.AuthConfig{Secret: "s3cret", ExpiryMin: 30})
	require.NoError(t, err)

	tok, err := ts.GenerateAccessToken(RequestClaims{
		Role:             RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops-oncall"},
	})
	require.NoError(t, err)

	claims, err := ts.ValidateAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops-oncall", claims.Subject)
	assert.Equal(t, RoleOperator, claims.Role)
}

func TestToken_Rejections(t *testing.T) {
	ts, err := NewTokenService(&config.AuthConfig{Secret: "s3cret", ExpiryMin: 1})
	require.NoError(t, err)
	other, err := NewTokenService(&config.AuthConfig{Secret: "other", ExpiryMin: 1})
	require.NoError(t, err)

	foreign, err := other.GenerateAccessToken(RequestClaims{Role: RoleOperator})
	require.NoError(t, err)
	_, err = ts.ValidateAccessToken(foreign)
	assert.True(t, apperror.IsKind(err, apperror.Unauthorised))

	tok, err := ts.GenerateAccessToken(RequestClaims{Role: RoleOperator})
	require.NoError(t, err)
	ts.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = ts.ValidateAccessToken(tok)
	assert.True(t, apperror.IsKind(err, apperror.Unauthorised))

	_, err = ts.ValidateAccessToken("not.a.jwt")
	assert.Error(t, err)
}
