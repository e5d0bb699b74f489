package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type window struct {
	start time.Time
	count int
}

// RateLimiter is a fixed-window limiter keyed per client. A client is the
// actor header when present, otherwise the forwarded or remote address.
type RateLimiter struct {
	maxRequests    int
	windowDuration time.Duration
	actorHeader    string
	now            func() time.Time

	mu      sync.Mutex
	windows map[string]*window
	lastGC  time.Time
}

func NewRateLimiter(maxRequests int, windowDuration time.Duration, actorHeader string) *RateLimiter {
	return &RateLimiter{
		maxRequests:    maxRequests,
		windowDuration: windowDuration,
		actorHeader:    actorHeader,
		now:            time.Now,
		windows:        make(map[string]*window),
	}
}

func (rl *RateLimiter) clientID(c *fiber.Ctx) string {
	if rl.actorHeader != "" {
		if actor := c.Get(rl.actorHeader); actor != "" {
			return "actor:" + actor
		}
	}
	ip := c.Get("X-Forwarded-For")
	if ip == "" {
		ip = c.Get("X-Real-IP")
	}
	if ip == "" {
		ip = c.IP()
	}
	return "ip:" + ip
}

func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.collect(now)

	w, ok := rl.windows[client]
	if !ok || now.Sub(w.start) >= rl.windowDuration {
		rl.windows[client] = &window{start: now, count: 1}
		return true
	}
	if w.count >= rl.maxRequests {
		return false
	}
	w.count++
	return true
}

// collect drops windows that expired at least one full window ago.
func (rl *RateLimiter) collect(now time.Time) {
	if now.Sub(rl.lastGC) < rl.windowDuration {
		return
	}
	rl.lastGC = now
	for client, w := range rl.windows {
		if now.Sub(w.start) >= 2*rl.windowDuration {
			delete(rl.windows, client)
		}
	}
}

func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		client := rl.clientID(c)

		if !rl.Allow(client) {
			log.Warn().
				Str("client", client).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("max_requests", rl.maxRequests).
				Msg("Rate limit exceeded")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please try again later.",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.maxRequests))
		c.Set("X-RateLimit-Window", rl.windowDuration.String())

		return c.Next()
	}
}
