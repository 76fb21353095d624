package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/omer3kale/SichrSpace-sub002/internal/ratelimit"
)

// RateLimit throttles requests per client key. Applied only to sensitive
// routes (login, register, refresh); browsing endpoints stay unthrottled.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ratelimit.ClientKey(c.Request)
		if limiter.TryConsume(key) {
			c.Next()
			return
		}

		retryAfter := int(limiter.RetryAfter().Seconds())
		log.Warn().Str("client", key).Str("path", c.Request.URL.Path).Msg("rate limit exceeded")

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"status":    http.StatusTooManyRequests,
			"error":     "Too Many Requests",
			"message":   "too many requests, retry after " + strconv.Itoa(retryAfter) + " seconds",
			"errorCode": "RATE_LIMIT_EXCEEDED",
			"path":      c.Request.URL.Path,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
