package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestIPRateLimiter_SlidingWindow(t *testing.T) {
	req := require.New(t)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewIPRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return clock }

	req.True(rl.Allow("10.0.0.1"))
	req.True(rl.Allow("10.0.0.1"))
	req.False(rl.Allow("10.0.0.1"))
	req.True(rl.Allow("10.0.0.2"))

	clock = clock.Add(61 * time.Second)
	req.True(rl.Allow("10.0.0.1"))
}

func TestIPRateLimiter_Sweep(t *testing.T) {
	req := require.New(t)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewIPRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return clock }

	rl.Allow("10.0.0.1")
	clock = clock.Add(30 * time.Second)
	rl.Allow("10.0.0.2")
	clock = clock.Add(45 * time.Second)

	rl.Sweep()
	req.NotContains(rl.requests, "10.0.0.1")
	req.Contains(rl.requests, "10.0.0.2")
}

func TestRateLimit(t *testing.T) {
	req := require.New(t)
	r := newRouter(RateLimit(NewIPRateLimiter(1, time.Minute)))
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	first := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))
	req.Equal(http.StatusNoContent, first.Code)

	second := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))
	req.Equal(http.StatusTooManyRequests, second.Code)
	req.Equal("Too many requests, please try again later", decodeError(t, second).Message)
}
