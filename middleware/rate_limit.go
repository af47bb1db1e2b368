package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/kabarportal/portal/utils"
)

// LimiterStore decides whether one more request for key is allowed.
type LimiterStore interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// MemoryLimiterStore keeps a token bucket per key in process memory. Buckets
// idle for longer than the idle TTL are dropped by Sweep.
type MemoryLimiterStore struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu        sync.Mutex
	limiters  map[string]*rateLimiter
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryLimiterStore allows perMinute requests per key with a burst of half that.
func NewMemoryLimiterStore(perMinute int) *MemoryLimiterStore {
	perMinute = max(perMinute, 1)
	return &MemoryLimiterStore{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/2, 1),
		idle:     5 * time.Minute,
		limiters: map[string]*rateLimiter{},
		now:      time.Now,
	}
}

// Allow consumes one token from key's bucket. Idle buckets are dropped at most
// once per idle period, so the map stays bounded without a sweeper.
func (s *MemoryLimiterStore) Allow(_ context.Context, key string) (bool, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSweep) >= s.idle {
		s.sweepLocked(now)
	}
	l, ok := s.limiters[key]
	if !ok {
		l = &rateLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = l
	}
	l.expires = now.Add(s.idle)
	return l.limiter.AllowN(now, 1), nil
}

// Sweep drops idle buckets and returns how many were removed.
func (s *MemoryLimiterStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *MemoryLimiterStore) sweepLocked(now time.Time) int {
	s.lastSweep = now
	removed := 0
	for key, l := range s.limiters {
		if now.After(l.expires) {
			delete(s.limiters, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (s *MemoryLimiterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *MemoryLimiterStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// RedisLimiterStore counts requests per key in fixed one-minute windows shared by every instance.
type RedisLimiterStore struct {
	rc        *redis.Client
	perMinute int
	prefix    string
	now       func() time.Time
}

// NewRedisLimiterStore allows perMinute requests per key and minute.
func NewRedisLimiterStore(rc *redis.Client, perMinute int) *RedisLimiterStore {
	return &RedisLimiterStore{rc: rc, perMinute: max(perMinute, 1), prefix: "ratelimit:", now: time.Now}
}

// Allow increments the current window's counter for key.
func (s *RedisLimiterStore) Allow(ctx context.Context, key string) (bool, error) {
	window := s.now().Unix() / 60
	k := s.prefix + key + ":" + strconv.FormatInt(window, 10)
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	pipe := s.rc.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= int64(s.perMinute), nil
}

// RateLimitMiddleware applies store per client IP as resolved by gin, so
// forwarded headers only count when the peer is a trusted proxy. Store errors fail open.
func RateLimitMiddleware(store LimiterStore) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		allowed, err := store.Allow(ctx.Request.Context(), ip)
		if err != nil {
			utils.Sugar.Warnf("rate limit store error ip=%s err=%v", ip, err)
			allowed = true
		}
		if !allowed {
			utils.Error(ctx, http.StatusTooManyRequests, "Too many requests")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
