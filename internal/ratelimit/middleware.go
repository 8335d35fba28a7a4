package ratelimit

import (
	"github.com/gofiber/fiber/v2"
)

// Middleware limits requests per client IP and route. A nil limiter lets
// everything through.
func Middleware(l *FixedWindowLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l == nil {
			return c.Next()
		}
		if !l.Allow(c.UserContext(), c.IP()+":"+c.Path()) {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
