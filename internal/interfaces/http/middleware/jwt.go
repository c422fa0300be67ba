package middleware

import (
	"net/http"
	"strings"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/auth"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/logger"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ScopeKey      = "scope"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenVerifier validates a bearer token
type TokenVerifier interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Verifier TokenVerifier
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(verifier TokenVerifier) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		Verifier:  verifier,
		SkipPaths: []string{"/health", "/ready"},
		Logger:    zap.NewNop(),
	}
}

// JWTAuth verifies the bearer token and stores the resulting scope in the
// gin context. The tenant and actor are added to the request logger.
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}

		header := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(header, BearerPrefix) {
			abortAuth(c, cfg, auth.ErrInvalidToken, "Missing bearer token")
			return
		}
		token := strings.TrimPrefix(header, BearerPrefix)
		if token == "" {
			abortAuth(c, cfg, auth.ErrInvalidToken, "Missing bearer token")
			return
		}

		claims, err := cfg.Verifier.ValidateAccessToken(token)
		if err != nil {
			abortAuth(c, cfg, err, "Token validation failed")
			return
		}
		scope, err := claims.Scope()
		if err != nil {
			abortAuth(c, cfg, err, "Token claims are malformed")
			return
		}

		c.Set(ScopeKey, scope)

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, log = logger.WithUserID(ctx, log, scope.ActorID.String())
		if claims.TenantID != "" {
			ctx, _ = logger.WithTenantID(ctx, log, claims.TenantID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func abortAuth(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	cfg.Logger.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code, msg := dto.ErrCodeUnauthorized, "Authentication required"
	switch err {
	case auth.ErrExpiredToken:
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case auth.ErrInvalidToken, auth.ErrInvalidClaims, auth.ErrMissingUserID, auth.ErrTokenNotYetValid:
		code, msg = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, msg, logger.GetRequestID(c.Request.Context())))
}

// GetScope returns the scope stored by JWTAuth. ok is false on routes that
// skipped authentication.
func GetScope(c *gin.Context) (shared.Scope, bool) {
	v, exists := c.Get(ScopeKey)
	if !exists {
		return shared.Scope{}, false
	}
	scope, ok := v.(shared.Scope)
	return scope, ok
}
