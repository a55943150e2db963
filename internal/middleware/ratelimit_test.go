package middleware

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(limiter gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limiter)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func get(router http.Handler, clientID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if clientID != "" {
		req.Header.Set("X-Client-ID", clientID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(RateLimitConfig{
		Limit:  3,
		Window: 300 * time.Millisecond,
	}))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(router, "").Code, "Request %d should succeed", i+1)
	}

	w := get(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "4th request should be rate limited")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMITED", body.Code)

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, http.StatusOK, get(router, "").Code, "Request after window should succeed")
}

func TestRateLimiterDifferentClients(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(RateLimitConfig{
		Limit:  2,
		Window: time.Second,
		KeyFunc: func(c *gin.Context) string {
			return c.GetHeader("X-Client-ID")
		},
	}))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(router, "client-a").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(router, "client-a").Code, "Client A should be rate limited")
	assert.Equal(t, http.StatusOK, get(router, "client-b").Code, "Client B should not be rate limited")
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	rl := &RateLimiter{
		buckets:   make(map[string]*TokenBucket),
		config:    RateLimitConfig{Limit: 1, Window: 10 * time.Millisecond},
		lastSweep: time.Now(),
	}
	rl.bucket("old")
	time.Sleep(30 * time.Millisecond)
	rl.bucket("new")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "old")
	assert.Contains(t, rl.buckets, "new")
}

func TestDefaultConfigs(t *testing.T) {
	defaultConfig := DefaultRateLimitConfig()
	assert.Equal(t, 120, defaultConfig.Limit)
	assert.Equal(t, time.Minute, defaultConfig.Window)
	assert.NotNil(t, defaultConfig.KeyFunc)

	assert.Equal(t, 30, WriteRateLimitConfig(30).Limit)
	assert.Equal(t, 120, WriteRateLimitConfig(0).Limit)
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string]int64)
	}
	f.counts[key]++
	return f.counts[key], window, nil
}

func TestRedisRateLimit(t *testing.T) {
	counter := &fakeCounter{}
	router := newLimitedRouter(RedisRateLimitMiddleware(counter, RateLimitConfig{
		Limit:  2,
		Window: 5 * time.Second,
		KeyFunc: func(c *gin.Context) string {
			return c.GetHeader("X-Client-ID")
		},
	}))

	assert.Equal(t, http.StatusOK, get(router, "a").Code)
	assert.Equal(t, http.StatusOK, get(router, "a").Code)

	w := get(router, "a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, get(router, "b").Code)
	assert.Contains(t, counter.counts, "hypechain:rate_limit:a")
}

func TestRedisRateLimitRejectsWhenCounterFails(t *testing.T) {
	router := newLimitedRouter(RedisRateLimitMiddleware(
		&fakeCounter{err: stderrors.New("connection refused")},
		DefaultRateLimitConfig(),
	))

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "").Code)
}
