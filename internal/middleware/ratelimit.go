package middleware

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"golang.org/x/time/rate"
)

// GlobalAPIRateLimiter is the first line of defense for all API requests.
// Keyed per IP.
func GlobalAPIRateLimiter(max int, expiration time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(expiration.Seconds()),
			})
		},
	})
}

// PromptRateLimiter throttles generation requests per caller using a
// token bucket. Generation is the expensive path so it gets its own
// budget independent of the global limiter.
type PromptRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*promptLimiterEntry
	limit    rate.Limit
	burst    int
}

type promptLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewPromptRateLimiter allows perMinute requests per caller with the
// given burst.
func NewPromptRateLimiter(perMinute, burst int) *PromptRateLimiter {
	l := &PromptRateLimiter{
		limiters: make(map[string]*promptLimiterEntry),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether the caller identified by key may proceed.
func (l *PromptRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &promptLimiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

// cleanupLoop drops buckets for callers idle longer than 10 minutes.
func (l *PromptRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		l.mu.Lock()
		for key, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, key)
			}
		}
		l.mu.Unlock()
	}
}

// Handler returns the Fiber middleware for the generation endpoint.
// Keyed by authenticated operator when present, IP otherwise.
func (l *PromptRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "prompt-ip:" + c.IP()
		if operator, ok := OperatorFromContext(c); ok {
			key = "prompt:" + operator
		}

		if !l.Allow(key) {
			log.Printf("⚠️  [RATE-LIMIT] Prompt limit reached for %s", key)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Generation rate limit reached. Please wait before sending more prompts.",
			})
		}

		return c.Next()
	}
}
