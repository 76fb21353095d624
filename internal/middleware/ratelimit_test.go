package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omer3kale/SichrSpace-sub002/internal/ratelimit"
)

func limitedRouter(limiter *ratelimit.Limiter) *gin.Engine {
	r := gin.New()
	r.POST("/auth/login", RateLimit(limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func postLogin(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.Header.Set("X-Forwarded-For", ip)
	r.ServeHTTP(w, req)
	return w
}

func TestEleventhLoginGets429(t *testing.T) {
	limiter := ratelimit.NewLimiter(10, 10, time.Minute)
	r := limitedRouter(limiter)

	for i := 0; i < 10; i++ {
		w := postLogin(r, "203.0.113.7")
		require.Equal(t, http.StatusOK, w.Code, "request %d within capacity", i+1)
	}

	w := postLogin(r, "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["errorCode"])
	assert.Equal(t, "/auth/login", body["path"])
	assert.Equal(t, float64(http.StatusTooManyRequests), body["status"])
	assert.NotEmpty(t, body["message"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRateLimitIsPerClient(t *testing.T) {
	limiter := ratelimit.NewLimiter(1, 1, time.Minute)
	r := limitedRouter(limiter)

	require.Equal(t, http.StatusOK, postLogin(r, "198.51.100.1").Code)
	require.Equal(t, http.StatusTooManyRequests, postLogin(r, "198.51.100.1").Code)

	assert.Equal(t, http.StatusOK, postLogin(r, "198.51.100.2").Code,
		"a throttled neighbour must not affect other clients")
}
