package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(window time.Duration, now func() time.Time) *gin.Engine {
	gin.SetMode(gin.TestMode)
	limiter := &rateLimiter{
		window:        window,
		sweepInterval: 10 * window,
		last:          make(map[string]time.Time),
		now:           now,
	}
	r := gin.New()
	r.GET("/ping", limiter.handle, func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func doPing(r *gin.Engine) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_BlocksWithinWindow(t *testing.T) {
	current := time.Unix(1000, 0)
	r := newLimitedRouter(time.Second, func() time.Time { return current })

	require.Equal(t, http.StatusOK, doPing(r))
	require.Equal(t, http.StatusTooManyRequests, doPing(r))

	current = current.Add(1100 * time.Millisecond)
	require.Equal(t, http.StatusOK, doPing(r))
}

func TestRateLimit_SweepDropsStaleEntries(t *testing.T) {
	current := time.Unix(1000, 0)
	limiter := &rateLimiter{
		window:        time.Second,
		sweepInterval: 10 * time.Second,
		last:          make(map[string]time.Time),
		now:           func() time.Time { return current },
	}

	limiter.mu.Lock()
	limiter.last["a|0|/x"] = current
	limiter.last["b|0|/x"] = current
	limiter.cleanupExpiredLocked(current)
	require.Len(t, limiter.last, 2)

	current = current.Add(11 * time.Second)
	limiter.cleanupExpiredLocked(current)
	require.Empty(t, limiter.last)
	limiter.mu.Unlock()
}
