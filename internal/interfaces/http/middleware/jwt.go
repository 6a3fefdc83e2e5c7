package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	appordering "github.com/restorecommerce/ordering-srv-sub000/internal/application/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/auth"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/logger"
	"github.com/restorecommerce/ordering-srv-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWT context keys
const (
	SubjectKey    = "subject"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator verifies bearer tokens
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Validator TokenValidator
	// Optional lets requests without a token through as anonymous callers.
	// A token that is present must still be valid.
	Optional  bool
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(v TokenValidator) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		Validator: v,
		SkipPaths: []string{"/health", "/ready", "/api/v1/system/ping"},
	}
}

// JWTAuthMiddleware resolves the caller from the bearer token
func JWTAuthMiddleware(v TokenValidator) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(v))
}

// JWTAuthMiddlewareWithConfig resolves the caller from the bearer token and
// stores it as the operation subject in the request context
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			if cfg.Optional {
				c.Next()
				return
			}
			handleAuthError(c, cfg, auth.ErrInvalidToken, "Missing authorization header")
			return
		}
		tokenString, ok := strings.CutPrefix(authHeader, BearerPrefix)
		if !ok || tokenString == "" {
			handleAuthError(c, cfg, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}

		claims, err := cfg.Validator.Validate(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err, "Token validation failed")
			return
		}

		subject := SubjectFromClaims(claims, tokenString)
		c.Set(SubjectKey, subject)
		ctx := appordering.WithSubject(c.Request.Context(), subject)
		ctx = logger.WithSubjectID(ctx, subject.ID)
		c.Request = c.Request.WithContext(ctx)

		cfg.Logger.Debug("JWT authentication successful", zap.String("subject_id", subject.ID))
		c.Next()
	}
}

// SubjectFromClaims builds the operation subject for verified claims
func SubjectFromClaims(claims *auth.Claims, token string) appordering.Subject {
	return appordering.Subject{
		ID:          claims.Subject,
		Name:        claims.Name,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
		Token:       token,
	}
}

// GetSubject returns the subject resolved for the request
func GetSubject(c *gin.Context) (appordering.Subject, bool) {
	if v, ok := c.Get(SubjectKey); ok {
		s, ok := v.(appordering.Subject)
		return s, ok
	}
	return appordering.Subject{}, false
}

func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	cfg.Logger.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code, msg := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrMissingSubject):
		code, msg = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, msg, GetRequestID(c)))
}
