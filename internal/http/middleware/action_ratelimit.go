package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// UserLimiter limits game actions per user (not per IP) using Redis.
// It serves both REST game routes and websocket actions.
type UserLimiter struct {
	max    int
	window time.Duration
}

func NewUserLimiter(max int, window time.Duration) *UserLimiter {
	return &UserLimiter{max: max, window: window}
}

// Allow fails open when Redis is unavailable.
func (l *UserLimiter) Allow(ctx context.Context, userID int64) bool {
	if redisClient == nil || l.max <= 0 {
		return true
	}
	_, ok := l.check(ctx, userID)
	return ok
}

func (l *UserLimiter) check(ctx context.Context, userID int64) (int64, bool) {
	key := "action_rl:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(int64(l.window.Seconds()), 10)
	val, err := hit(ctx, key, l.window)
	if err != nil {
		RLErrors.Inc()
		return 0, true
	}
	if val > int64(l.max) {
		RLBlocked.WithLabelValues("action").Inc()
		return val, false
	}
	RLRequests.WithLabelValues("action").Inc()
	return val, true
}

// ActionRateLimit applies l to an authenticated route. JWT must run first.
func ActionRateLimit(l *UserLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get(UserIDKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		id, ok := userID.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}
		if redisClient == nil || l.max <= 0 {
			c.Next()
			return
		}

		val, allowed := l.check(c.Request.Context(), id)
		c.Header("X-ActionRateLimit-Limit", strconv.Itoa(l.max))
		c.Header("X-ActionRateLimit-Remaining", strconv.FormatInt(max(0, int64(l.max)-val), 10))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "action rate limit exceeded",
				"retry_after": int(l.window.Seconds()),
			})
			return
		}
		c.Next()
	}
}
