// middleware/rate_limiter.go
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/HSouheill/affiliate_backend/models"
)

type endpointLimit struct {
	limit rate.Limit
	burst int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP and route. A caller that
// exhausts a route's bucket is blocked on that route only.
type RateLimiter struct {
	visitors       map[string]*visitor
	blocked        map[string]time.Time
	mu             sync.Mutex
	defaultLimit   rate.Limit
	defaultBurst   int
	blockDuration  time.Duration
	idleTTL        time.Duration
	endpointLimits map[string]endpointLimit
	now            func() time.Time
}

func NewRateLimiter() *RateLimiter {
	limiter := &RateLimiter{
		visitors:       make(map[string]*visitor),
		blocked:        make(map[string]time.Time),
		defaultLimit:   rate.Every(100 * time.Millisecond), // 10 requests per second
		defaultBurst:   20,
		blockDuration:  5 * time.Minute,
		idleTTL:        10 * time.Minute,
		endpointLimits: make(map[string]endpointLimit),
		now:            time.Now,
	}

	// sale ingestion is called by the checkout backend, so it gets more room
	limiter.SetEndpointLimit("/api/sales", rate.Every(10*time.Millisecond), 200)
	limiter.SetEndpointLimit("/api/admin/marketers", rate.Every(time.Second), 5)

	go limiter.cleanupLoop()

	return limiter
}

// SetEndpointLimit overrides the default limit for a registered route path.
func (r *RateLimiter) SetEndpointLimit(path string, limit rate.Limit, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpointLimits[path] = endpointLimit{limit: limit, burst: burst}
}

func (r *RateLimiter) cleanupLoop() {
	for {
		time.Sleep(time.Minute)
		r.cleanup()
	}
}

// cleanup drops expired blocks and buckets idle for longer than idleTTL.
func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for key, blockUntil := range r.blocked {
		if now.After(blockUntil) {
			delete(r.blocked, key)
			delete(r.visitors, key)
		}
	}
	for key, v := range r.visitors {
		if _, blocked := r.blocked[key]; !blocked && now.Sub(v.lastSeen) > r.idleTTL {
			delete(r.visitors, key)
		}
	}
}

func (r *RateLimiter) size() (visitors, blocked int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors), len(r.blocked)
}

func (r *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/api/ws") {
				return next(c)
			}
			key := c.RealIP() + "|" + c.Path()

			r.mu.Lock()
			now := r.now()
			if blockUntil, blocked := r.blocked[key]; blocked {
				if now.Before(blockUntil) {
					r.mu.Unlock()
					return tooManyRequests(c, blockUntil)
				}
				delete(r.blocked, key)
				delete(r.visitors, key)
			}
			v, exists := r.visitors[key]
			if !exists {
				limit, burst := r.defaultLimit, r.defaultBurst
				if el, ok := r.endpointLimits[c.Path()]; ok {
					limit, burst = el.limit, el.burst
				}
				v = &visitor{limiter: rate.NewLimiter(limit, burst)}
				r.visitors[key] = v
			}
			v.lastSeen = now
			allowed := v.limiter.AllowN(now, 1)
			if !allowed {
				blockUntil := now.Add(r.blockDuration)
				r.blocked[key] = blockUntil
				r.mu.Unlock()
				return tooManyRequests(c, blockUntil)
			}
			r.mu.Unlock()

			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, retryAfter time.Time) error {
	return c.JSON(http.StatusTooManyRequests, models.Response{
		Status:  http.StatusTooManyRequests,
		Message: "Too many requests",
		Data:    map[string]string{"retryAfter": retryAfter.Format(time.RFC3339)},
	})
}
