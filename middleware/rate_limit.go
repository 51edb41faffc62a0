package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sukull/istikrar/utils"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 5 * time.Minute

type bucket struct {
	limiter *rate.Limiter
	expires time.Time
}

// RateLimiter hands out one token bucket per caller. Buckets idle for five minutes are dropped.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewRateLimiter allows perMinute requests per caller with a burst of half that.
func NewRateLimiter(perMinute int) *RateLimiter {
	perMinute = max(perMinute, 1)
	return &RateLimiter{
		buckets: map[string]*bucket{},
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
		now:     time.Now,
	}
}

// Allow takes one token from key's bucket.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, b := range l.buckets {
		if now.After(b.expires) {
			delete(l.buckets, k)
		}
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.expires = now.Add(limiterIdleTTL)
	return b.limiter.AllowN(now, 1)
}

// Middleware keys buckets by authenticated user, or by client IP for anonymous requests.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := "ip:" + ctx.ClientIP()
		if userID := ctx.GetString(ContextUserIDKey); userID != "" {
			key = "user:" + userID
		}
		if !l.Allow(key) {
			utils.Abort(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			return
		}
		ctx.Next()
	}
}
