package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/praxis/server/internal/module/auth"
	"github.com/praxis/server/internal/shared/logger"
	"github.com/praxis/server/internal/utils/metrics"
	"github.com/praxis/server/internal/utils/requestctx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequestID(t *testing.T) {
	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			assert.Equal(t, GetRequestID(c), requestctx.RequestID(c.Request.Context()))
			c.String(http.StatusOK, GetRequestID(c))
		})
		return router
	}

	t.Run("generates new request ID when not provided", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		headerID := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, headerID)
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "existing-request-id-123")
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, "existing-request-id-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "existing-request-id-123", w.Body.String())
	})
}

func TestLogging(t *testing.T) {
	t.Run("logs successful requests with request id", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{Level: "info", Output: buf})

		router := gin.New()
		router.Use(RequestID(), Logging(log))
		router.GET("/test", func(c *gin.Context) {
			logger.FromContext(c.Request.Context()).Info("inside handler")
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		router.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		assert.Contains(t, out, "inside handler")
		assert.Contains(t, out, `"msg":"http request"`)
		assert.Contains(t, out, `"status":200`)
		assert.Contains(t, out, `"request_id":"req-42"`)
	})

	t.Run("logs 5xx requests as errors", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{Level: "error", Output: buf})

		router := gin.New()
		router.Use(Logging(log))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusInternalServerError, "error")
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Contains(t, buf.String(), `"level":"ERROR"`)
		assert.Contains(t, buf.String(), `"status":500`)
	})
}

func TestRecovery(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(&logger.Config{Level: "error", Output: buf})

	router := gin.New()
	router.Use(Recovery(log))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", decodeBody(t, w)["error"])
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "test panic")
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()

	router := gin.New()
	router.Use(CORS(cfg))
	router.POST("/billing", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	router.OPTIONS("/billing", Preflight(cfg))

	t.Run("preflight with origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/billing", nil)
		req.Header.Set("Origin", "https://app.praxis.test")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "authorization, content-type")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("options without origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/billing", bytes.NewBufferString("{garbage")))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("simple request carries allow origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/billing", nil)
		req.Header.Set("Origin", "https://app.praxis.test")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestMethodNotAllowed(t *testing.T) {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoMethod(MethodNotAllowed())
	router.NoRoute(NotFound())

	reached := false
	router.POST("/billing", func(c *gin.Context) { reached = true })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/billing", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "method_not_allowed", decodeBody(t, w)["error"])
	assert.False(t, reached)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequireAuth(t *testing.T) {
	cfg := auth.Config{Secret: "middleware-test-secret-0123456789"}
	verifier := auth.NewVerifier(cfg)

	router := gin.New()
	router.Use(RequireAuth(verifier))
	router.GET("/me", func(c *gin.Context) {
		assert.Equal(t, GetSubject(c), requestctx.Subject(c.Request.Context()))
		c.String(http.StatusOK, GetSubject(c))
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthorized", decodeBody(t, w)["error"])
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthorizationHeader, "Bearer user-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := auth.NewSigner(cfg, time.Hour).Sign("user-1", "a@b.c", auth.UserMetadata{})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthorizationHeader, "bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-1", w.Body.String())
	})
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, int, error) {
	return false, 0, errors.New("redis down")
}

func TestRateLimit(t *testing.T) {
	t.Run("rejects over budget", func(t *testing.T) {
		m := metrics.New("test", prometheus.NewRegistry())
		router := gin.New()
		router.Use(RateLimit(NewLocalRateLimiter(time.Minute), RateLimitConfig{Limit: 2, Window: time.Minute}, m))
		router.POST("/billing", func(c *gin.Context) { c.Status(http.StatusOK) })

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/billing", nil))
			codes = append(codes, w.Code)
			if w.Code == http.StatusTooManyRequests {
				assert.Equal(t, "rate_limited", decodeBody(t, w)["error"])
				assert.Equal(t, "60", w.Header().Get(RetryAfter))
			}
		}

		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitedTotal))
	})

	t.Run("limiter failure lets request through", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimit(failingLimiter{}, RateLimitConfig{Limit: 1, Window: time.Minute}, nil))
		router.POST("/billing", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/billing", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("nil limiter disables limiting", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimit(nil, RateLimitConfig{Limit: 1, Window: time.Minute}, nil))
		router.POST("/billing", func(c *gin.Context) { c.Status(http.StatusOK) })

		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/billing", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}

func TestLocalRateLimiter(t *testing.T) {
	l := NewLocalRateLimiter(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	allowed, remaining, err := l.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)

	allowed, _, _ = l.Allow(ctx, "k", 2, time.Minute)
	assert.True(t, allowed)
	allowed, _, _ = l.Allow(ctx, "k", 2, time.Minute)
	assert.False(t, allowed)

	// One token refills every window/limit.
	now = now.Add(30 * time.Second)
	allowed, _, _ = l.Allow(ctx, "k", 2, time.Minute)
	assert.True(t, allowed)

	// Idle keys are evicted.
	now = now.Add(2 * time.Minute)
	_, _, _ = l.Allow(ctx, "other", 2, time.Minute)
	l.mu.Lock()
	_, kept := l.buckets["k"]
	l.mu.Unlock()
	assert.False(t, kept)
}
