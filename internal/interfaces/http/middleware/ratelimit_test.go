package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limiterRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine) int {
	req := httptest.NewRequest("GET", "/ping", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_EnforcesLimit(t *testing.T) {
	rl := NewRateLimiter(3)
	r := limiterRouter(rl)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(r))
}

func TestRateLimiter_WindowRollover(t *testing.T) {
	rl := NewRateLimiter(1)
	current := time.Now()
	rl.now = func() time.Time { return current }
	r := limiterRouter(rl)

	assert.Equal(t, http.StatusOK, hit(r))
	assert.Equal(t, http.StatusTooManyRequests, hit(r))

	current = current.Add(time.Minute)
	assert.Equal(t, http.StatusOK, hit(r))
}

func TestRateLimiter_ZeroLimitDisables(t *testing.T) {
	r := limiterRouter(NewRateLimiter(0))
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, hit(r))
	}
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	rl := NewRateLimiter(1)
	r := limiterRouter(rl)

	assert.Equal(t, http.StatusOK, hit(r))
	assert.Equal(t, http.StatusTooManyRequests, hit(r))

	req := httptest.NewRequest("GET", "/ping", nil)
	req.RemoteAddr = "10.0.0.2:9999"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
