package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hypechain/backend/internal/errors"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/util"
	"go.uber.org/zap"
)

// WindowCounter is the shared counter behind the distributed limiter.
// *cache.RedisClient implements it.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisRateLimitMiddleware is a fixed-window limiter shared by every instance
// through counter. When the counter fails the request is rejected with 503
// rather than let through unmetered.
func RedisRateLimitMiddleware(counter WindowCounter, config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = clientKey
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("hypechain:rate_limit:%s", config.KeyFunc(c))
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, ttl, err := counter.IncrWindow(ctx, key, config.Window)
		if err != nil {
			logger.Log.Error("Rate limit check failed, rejecting request",
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, errors.ServiceUnavailable("rate limiter"))
			return
		}

		if count > int64(config.Limit) {
			retryAfter := int(ttl / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			rejectRateLimited(c, config.Limit, retryAfter)
			return
		}
		c.Next()
	}
}
