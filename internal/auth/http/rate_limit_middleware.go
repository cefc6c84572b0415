package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/token-rest/internal/errors"
	"github.com/allisson/token-rest/internal/httputil"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTTL         = time.Hour

	clientLimiterKey = "client_rate_limiter"
)

// limiterStore keeps one token bucket per key. Idle buckets are dropped by a
// janitor goroutine that runs until ctx is done.
type limiterStore[K comparable] struct {
	limiters sync.Map // K -> *limiterEntry
	rps      float64
	burst    int
}

type limiterEntry struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

func newLimiterStore[K comparable](ctx context.Context, rps float64, burst int) *limiterStore[K] {
	s := &limiterStore[K]{rps: rps, burst: burst}
	go s.cleanupStale(ctx, limiterCleanupInterval, limiterIdleTTL)
	return s
}

func (s *limiterStore[K]) get(key K) *rate.Limiter {
	now := time.Now()
	if v, ok := s.limiters.Load(key); ok {
		entry := v.(*limiterEntry)
		entry.mu.Lock()
		entry.lastAccess = now
		entry.mu.Unlock()
		return entry.limiter
	}

	v, _ := s.limiters.LoadOrStore(key, &limiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: now,
	})
	return v.(*limiterEntry).limiter
}

func (s *limiterStore[K]) cleanupStale(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle(time.Now().Add(-idle))
		}
	}
}

func (s *limiterStore[K]) evictIdle(threshold time.Time) {
	s.limiters.Range(func(key, value any) bool {
		entry := value.(*limiterEntry)
		entry.mu.Lock()
		stale := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()
		if stale {
			s.limiters.Delete(key)
		}
		return true
	})
}

func rejectTooManyRequests(c *gin.Context, limiter *rate.Limiter) {
	reservation := limiter.Reserve()
	retryAfter := int(math.Ceil(reservation.Delay().Seconds()))
	reservation.Cancel()

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.ErrorResponse{
		Error:   "rate_limit_exceeded",
		Message: "Too many requests, retry after the delay in Retry-After",
	})
}

// RateLimitMiddleware limits each authenticated client to rps requests per
// second with the given burst. It must run after AuthenticationMiddleware.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newLimiterStore[uuid.UUID](ctx, rps, burst)

	return func(c *gin.Context) {
		client, ok := GetClient(c.Request.Context())
		if !ok || client == nil {
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		limiter := store.get(client.ID)
		if !limiter.Allow() {
			logger.Debug("rate limit exceeded", slog.String("client_id", client.ID.String()))
			rejectTooManyRequests(c, limiter)
			return
		}
		c.Set(clientLimiterKey, limiter)
		c.Next()
	}
}

// ConsumeRateLimit takes up to n more units from the caller's bucket, one at a
// time, and returns how many it got. Requests that carry several operations
// use it after the middleware has charged the first one. Without rate
// limiting every unit is granted.
func ConsumeRateLimit(c *gin.Context, n int) int {
	v, ok := c.Get(clientLimiterKey)
	if !ok {
		return n
	}
	limiter := v.(*rate.Limiter)
	for i := 0; i < n; i++ {
		if !limiter.Allow() {
			return i
		}
	}
	return n
}

// TokenRateLimitMiddleware limits unauthenticated calls to the token endpoint
// per client IP.
func TokenRateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newLimiterStore[string](ctx, rps, burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if limiter := store.get(ip); !limiter.Allow() {
			logger.Debug("token rate limit exceeded", slog.String("ip", ip))
			rejectTooManyRequests(c, limiter)
			return
		}
		c.Next()
	}
}
