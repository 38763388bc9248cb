package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Suhaibinator/capi/pkg/common"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Unique identifier for this rate limit bucket.
	// Middlewares sharing a limiter and a BucketName share their budget.
	BucketName string

	// Maximum number of requests allowed in the time window
	Limit int

	// Time window for the rate limit (e.g., 1 minute, 1 hour)
	Window time.Duration

	// Strategy for identifying clients:
	// - "ip": Use the client IP (see ClientIP)
	// - "custom": Use KeyExtractor
	Strategy string

	// Custom key extractor function (used when Strategy is "custom")
	KeyExtractor func(req *common.Request) (string, error)

	// Limiter holds the buckets. A private TokenBucketLimiter is used when nil.
	Limiter RateLimiter
}

// RateLimiter defines the interface for rate limiting algorithms
type RateLimiter interface {
	// Allow reports whether a request for key fits in limit requests per window.
	// It also returns the remaining budget and the time until one more request is allowed.
	Allow(key string, limit int, window time.Duration) (bool, int, time.Duration)
}

// pruneEvery is how many Allow calls pass between automatic Prune sweeps.
const pruneEvery = 1024

// TokenBucketLimiter implements RateLimiter with one token bucket per key.
// Buckets hold up to limit tokens and refill at limit/window. Buckets that have refilled
// completely are dropped by Prune, which Allow also runs every pruneEvery calls, so the
// number of buckets tracks the keys seen within roughly one window.
type TokenBucketLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	now      func() time.Time
	calls    atomic.Uint64
}

// NewTokenBucketLimiter creates a new TokenBucketLimiter
func NewTokenBucketLimiter() *TokenBucketLimiter {
	return &TokenBucketLimiter{now: time.Now}
}

func (l *TokenBucketLimiter) getLimiter(key string, limit int, window time.Duration) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit))
	return v.(*rate.Limiter)
}

// Allow takes one token from the bucket for key
func (l *TokenBucketLimiter) Allow(key string, limit int, window time.Duration) (bool, int, time.Duration) {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}

	if l.calls.Add(1)%pruneEvery == 0 {
		l.Prune()
	}

	limiter := l.getLimiter(key, limit, window)
	now := l.clock()

	r := limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, 0, delay
	}

	remaining := int(math.Floor(limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, 0
}

// Prune drops every bucket that is full again. A full bucket allows exactly what a new
// one would, so pruning never changes a decision. It returns the number of buckets dropped.
func (l *TokenBucketLimiter) Prune() int {
	now := l.clock()
	dropped := 0
	l.limiters.Range(func(key, v any) bool {
		limiter := v.(*rate.Limiter)
		if limiter.TokensAt(now) >= float64(limiter.Burst()) && l.limiters.CompareAndDelete(key, v) {
			dropped++
		}
		return true
	})
	return dropped
}

func (l *TokenBucketLimiter) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

// RateLimit creates a gate that answers 429 once a client exhausts its budget
func RateLimit(config RateLimitConfig, logger *zap.Logger) Middleware {
	limiter := config.Limiter
	if limiter == nil {
		limiter = NewTokenBucketLimiter()
	}

	return func(req *common.Request, res *common.Response, next common.Next) {
		var key string
		switch config.Strategy {
		case "custom":
			if config.KeyExtractor == nil {
				key = ClientIPOf(req)
				break
			}
			var err error
			key, err = config.KeyExtractor(req)
			if err != nil {
				logger.Error("Failed to extract rate limit key",
					zap.Error(err),
					zap.String("method", req.Method),
					zap.String("path", req.Path),
				)
				_ = res.Status(http.StatusInternalServerError).JSON(map[string]string{"error": "internal server error"})
				return
			}
		default:
			key = ClientIPOf(req)
		}

		allowed, remaining, retryAfter := limiter.Allow(config.BucketName+":"+key, config.Limit, config.Window)

		res.SetHeader("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		res.SetHeader("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			res.SetHeader("Retry-After", strconv.FormatInt(int64(math.Ceil(retryAfter.Seconds())), 10))
			logger.Warn("Rate limit exceeded",
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.String("key", key),
				zap.Int("limit", config.Limit),
			)
			_ = res.Status(http.StatusTooManyRequests).JSON(map[string]string{"error": "too many requests"})
			return
		}

		next()
	}
}

// Throttle paces calls through a shared leaky bucket so that at most rps calls per second
// proceed. Calls over the rate wait instead of being rejected.
func Throttle(rps int) Middleware {
	if rps <= 0 {
		rps = 1
	}
	limiter := ratelimit.New(rps)

	return func(req *common.Request, res *common.Response, next common.Next) {
		limiter.Take()
		next()
	}
}
