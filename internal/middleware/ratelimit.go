package middleware

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"natours/internal/apperror"
)

var ErrTooManyRequests = apperror.New(http.StatusTooManyRequests, "Too many request from this IP, please try again in an hour!")

// RateLimit is a fixed-window counter per client IP: INCR, and EXPIRE on
// the first hit of a window. Redis failures let the request through.
func RateLimit(rdb redis.Cmdable, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := "rl:" + c.ClientIP()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("[ratelimit] redis unavailable: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				log.Printf("[ratelimit] expire %s: %v", key, err)
			}
		}

		remaining := int64(max) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if count > int64(max) {
			Abort(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
