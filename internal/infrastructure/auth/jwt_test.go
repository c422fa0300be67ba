package auth

import (
	"testing"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "test-issuer",
	})
}

func TestSignAndValidate(t *testing.T) {
	svc := newTestJWTService()
	scope := shared.NewScope(uuid.New(), uuid.New(), shared.PermissionVoidPayment, shared.PermissionManageCash)

	token, err := svc.Sign(scope, 15*time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, scope.TenantID.String(), claims.TenantID)
	assert.Equal(t, scope.ActorID.String(), claims.Subject)

	got, err := claims.Scope()
	require.NoError(t, err)
	assert.Equal(t, scope, got)
	assert.True(t, got.Has(shared.PermissionManageCash))
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := newTestJWTService()
	token, err := svc.Sign(shared.NewScope(uuid.New(), uuid.New()), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-of-32-characters", Issuer: "test-issuer"})
	token, err := other.Sign(shared.NewScope(uuid.New(), uuid.New()), time.Minute)
	require.NoError(t, err)

	_, err = newTestJWTService().ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_WrongIssuer(t *testing.T) {
	other := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "someone-else"})
	token, err := other.Sign(shared.NewScope(uuid.New(), uuid.New()), time.Minute)
	require.NoError(t, err)

	_, err = newTestJWTService().ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "test-issuer",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestJWTService().ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_MissingSubject(t *testing.T) {
	svc := newTestJWTService()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "test-issuer",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestClaimsScope(t *testing.T) {
	operator := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()}, Permissions: []string{"tenant:provision"}}
	scope, err := operator.Scope()
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, scope.TenantID)
	assert.ErrorIs(t, scope.Validate(), shared.ErrMissingTenantContext)
	assert.True(t, scope.Has(shared.PermissionProvisionTenants))

	bad := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()}, TenantID: "not-a-uuid"}
	_, err = bad.Scope()
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
