package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"timeletter/backend/internal/storage"
)

// RateLimitByUser 基于存储计数的用户级限流中间件。
// 窗口内超过 limit 次请求返回 429。需要认证中间件先写入 userID。
func RateLimitByUser(store storage.RateLimitRepository, log *zap.Logger, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			c.Next()
			return
		}

		key := "ratelimit:user:" + userID + ":" + c.FullPath()
		count, err := store.IncrementRateLimit(key, window)
		if err != nil {
			// 限流存储故障时放行，不阻断业务
			log.Warn("rate limit store error", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > limit {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// localLimiter 进程内令牌桶限流器，按用户维护
type localLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// LocalRateLimitByUser 进程内令牌桶限流中间件。
// 无 Redis 时的退路，perMin 为单用户每分钟许可数。
func LocalRateLimitByUser(perMin int) gin.HandlerFunc {
	ll := &localLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(perMin) / 60.0),
		burst:    perMin,
	}

	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			c.Next()
			return
		}

		if !ll.allow(userID) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (ll *localLimiter) allow(key string) bool {
	ll.mu.Lock()
	limiter, ok := ll.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(ll.rate, ll.burst)
		ll.limiters[key] = limiter
	}
	ll.mu.Unlock()
	return limiter.Allow()
}
