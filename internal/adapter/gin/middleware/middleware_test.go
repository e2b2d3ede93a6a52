package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"user-query-service/pkg/logger"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newLimitedRouter(t *testing.T, client *redis.Client, cfg TokenBucketConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(client, cfg, zaptest.NewLogger(t)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func doGet(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	client, _ := setupTestRedis(t)
	r := newLimitedRouter(t, client, TokenBucketConfig{RequestsPerSecond: 0.001, BurstCapacity: 3, Enabled: true})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "/ping").Code)
	}

	w := doGet(r, "/ping")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRateLimiter_BucketKeyPerRoute(t *testing.T) {
	client, mr := setupTestRedis(t)
	r := newLimitedRouter(t, client, TokenBucketConfig{RequestsPerSecond: 1, BurstCapacity: 5, Enabled: true})

	require.Equal(t, http.StatusOK, doGet(r, "/ping").Code)

	key := BucketKey(http.MethodGet, "/ping", "192.0.2.1")
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key).Seconds(), 0.0)
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, mr := setupTestRedis(t)
	r := newLimitedRouter(t, client, TokenBucketConfig{RequestsPerSecond: 0.001, BurstCapacity: 1, Enabled: false})

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "/ping").Code)
	}
	assert.Empty(t, mr.Keys())
}

func TestRateLimiter_FailOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()
	r := newLimitedRouter(t, client, TokenBucketConfig{RequestsPerSecond: 0.001, BurstCapacity: 1, Enabled: true})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "/ping").Code)
	}
}

func TestLogger_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	var seen string
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) {
		seen = logger.GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	t.Run("generated", func(t *testing.T) {
		w := doGet(r, "/ping")

		id := w.Header().Get(logger.RequestIDHeader)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, seen)
	})

	t.Run("propagated", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(logger.RequestIDHeader, "req-123")
		r.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Header().Get(logger.RequestIDHeader))
		assert.Equal(t, "req-123", seen)
	})

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(http.StatusNoContent), entries[1].ContextMap()["status"])
	assert.Equal(t, "req-123", entries[1].ContextMap()["request_id"])
}

func TestLogger_Traceparent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	var seen string
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) {
		seen = logger.GetTraceID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(logger.TraceparentHeader, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	r.ServeHTTP(w, req)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", seen)
	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entries[0].ContextMap()["trace_id"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.ErrorLevel)

	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := doGet(r, "/boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
