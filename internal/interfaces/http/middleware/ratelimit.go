package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/propsignal/propsignal/pkg/errors"
)

// RateLimiter enforces a fixed-window request cap per client IP.  State is
// in-process; behind a load balancer each instance applies its own cap,
// which is acceptable for abuse protection.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*clientWindow
}

type clientWindow struct {
	start time.Time
	count int
}

// NewRateLimiter caps each client at limit requests per minute.  A limit of
// zero disables enforcement.
func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  time.Minute,
		now:     time.Now,
		windows: make(map[string]*clientWindow),
	}
}

// Handler is the gin middleware.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}
		if !rl.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			abortWithCode(c, http.StatusTooManyRequests, errors.ErrCodeTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[client]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.windows[client] = &clientWindow{start: now, count: 1}
		rl.sweep(now)
		return true
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

// sweep drops stale windows so the map doesn't grow unbounded.  Called with
// the lock held, only on window rollover.
func (rl *RateLimiter) sweep(now time.Time) {
	for client, w := range rl.windows {
		if now.Sub(w.start) >= 2*rl.window {
			delete(rl.windows, client)
		}
	}
}
