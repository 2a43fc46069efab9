package middleware

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        time.Duration
}

// DefaultCORSConfig returns the permissive policy the checkout page relies on.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "X-Client-Info", "ApiKey", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
}

// CORS returns a CORS middleware. Preflight requests are answered with 200 and no body.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:              cfg.AllowMethods,
		AllowHeaders:              cfg.AllowHeaders,
		ExposeHeaders:             cfg.ExposeHeaders,
		MaxAge:                    cfg.MaxAge,
		OptionsResponseStatusCode: http.StatusOK,
	}
	if len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.AllowOrigins
	}
	return cors.New(cc)
}

// Preflight answers OPTIONS requests that carry no Origin header, which the
// CORS middleware passes through untouched.
func Preflight(cfg CORSConfig) gin.HandlerFunc {
	origin := "*"
	if len(cfg.AllowOrigins) > 0 && !slices.Contains(cfg.AllowOrigins, "*") {
		origin = cfg.AllowOrigins[0]
	}
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Status(http.StatusOK)
	}
}
