package api

import (
	"errors"

	"creche-backend/internal/logging"
	"creche-backend/internal/rules"

	"github.com/gofiber/fiber/v2"
)

func StatusOf(kind rules.Kind) int {
	switch kind {
	case rules.KindInvalidArgument:
		return fiber.StatusBadRequest
	case rules.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case rules.KindForbidden:
		return fiber.StatusForbidden
	case rules.KindNotFound:
		return fiber.StatusNotFound
	case rules.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func kindOfStatus(status int) rules.Kind {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return rules.KindInvalidArgument
	case fiber.StatusUnauthorized:
		return rules.KindUnauthenticated
	case fiber.StatusForbidden:
		return rules.KindForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return rules.KindNotFound
	case fiber.StatusConflict:
		return rules.KindConflict
	case fiber.StatusTooManyRequests:
		return "rate_limited"
	default:
		return rules.KindInternal
	}
}

// ErrorHandler renders every error as an Envelope. Internal failures are
// logged and replaced by a generic message.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(Envelope{
				Message: fe.Message,
				Error:   string(kindOfStatus(fe.Code)),
			})
		}

		kind := rules.KindOf(err)
		status := StatusOf(kind)
		msg := err.Error()
		var re *rules.Error
		if errors.As(err, &re) && re.Message != "" {
			msg = re.Message
		}
		if kind == rules.KindInternal {
			logger.Err(c.UserContext(), "request failed", "method", c.Method(), "path", c.Path(), "err", err)
			msg = "internal server error"
		}
		return c.Status(status).JSON(Envelope{Message: msg, Error: string(kind)})
	}
}
