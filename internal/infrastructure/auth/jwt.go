// Package auth verifies access tokens issued by the identity provider and
// turns their claims into a shared.Scope.
package auth

import (
	"errors"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing sub in claims")
)

// Claims carries the tenant, the actor and the granted permissions. tid is
// empty for platform operators.
type Claims struct {
	jwt.RegisteredClaims
	TenantID    string   `json:"tid,omitempty"`
	Permissions []string `json:"perms,omitempty"`
}

// Scope converts the claims into the scope application services run under.
// A missing or malformed tid yields a scope without tenant, which every
// tenant-owned operation rejects.
func (c *Claims) Scope() (shared.Scope, error) {
	actorID, err := uuid.Parse(c.Subject)
	if err != nil {
		return shared.Scope{}, ErrInvalidClaims
	}
	var tenantID uuid.UUID
	if c.TenantID != "" {
		if tenantID, err = uuid.Parse(c.TenantID); err != nil {
			return shared.Scope{}, ErrInvalidClaims
		}
	}
	perms := make([]shared.Permission, len(c.Permissions))
	for i, p := range c.Permissions {
		perms[i] = shared.Permission(p)
	}
	return shared.NewScope(tenantID, actorID, perms...), nil
}

// JWTService verifies HMAC signed access tokens
type JWTService struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		leeway: 30 * time.Second,
	}
}

// ValidateAccessToken validates a token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// Sign issues a token for the given scope. The identity provider owns
// issuance in production; tests and the load generator use this.
func (s *JWTService) Sign(scope shared.Scope, ttl time.Duration) (string, error) {
	now := time.Now()
	perms := make([]string, len(scope.Permissions))
	for i, p := range scope.Permissions {
		perms[i] = string(p)
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   scope.ActorID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Permissions: perms,
	}
	if scope.TenantID != uuid.Nil {
		claims.TenantID = scope.TenantID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
