package logging

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger emits one http_request line per request. Errors returned by
// the chain are handed to the app's ErrorHandler first so the logged status
// is the one the client sees.
func RequestLogger(l *Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			c.SetUserContext(WithRequestID(c.UserContext(), rid))
		}

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		l.Info(c.UserContext(), "http_request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}
}
