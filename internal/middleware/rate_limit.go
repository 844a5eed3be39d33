package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit creates a per-session rate limiter. Requests that did not present a
// session cookie share their client IP's bucket, since a fresh id is minted for each of them.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			key := SessionKey(c)
			if key == "" || sessionIssued(c) {
				return fmt.Sprintf("%s:ip:%s", identifier, c.IP())
			}
			return fmt.Sprintf("%s:session:%s", identifier, key)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "too many requests",
			})
		},
	})
}
