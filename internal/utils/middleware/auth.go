package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/praxis/server/internal/module/auth"
	apperrors "github.com/praxis/server/internal/shared/errors"
	"github.com/praxis/server/internal/shared/logger"
	"github.com/praxis/server/internal/utils/requestctx"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// ClaimsKey is the gin context key for verified session claims.
	ClaimsKey = "auth_claims"
)

// TokenVerifier verifies session tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid session token with 401.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			abortWith(c, apperrors.Unauthorized("Authorization header required"))
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			logger.FromContext(c.Request.Context()).WarnContext(c.Request.Context(), "session token rejected", logger.Err(err))
			abortWith(c, apperrors.Unauthorized("Invalid or expired token"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(requestctx.WithSubject(c.Request.Context(), claims.UserID()))
		c.Next()
	}
}

// GetClaims returns the verified session claims, or nil.
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetSubject returns the authenticated user id, or an empty string.
func GetSubject(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.UserID()
	}
	return ""
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader(AuthorizationHeader)
	if len(header) < len(BearerPrefix) || !strings.EqualFold(header[:len(BearerPrefix)], BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(BearerPrefix):])
}

func abortWith(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.StatusCode, err.Body())
}
