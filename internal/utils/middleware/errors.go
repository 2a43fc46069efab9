package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/praxis/server/internal/shared/errors"
)

// MethodNotAllowed renders the 405 body for routes that exist under another method.
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		abortWith(c, apperrors.MethodNotAllowed())
	}
}

// NotFound renders the 404 body for unknown routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Not found"})
	}
}
