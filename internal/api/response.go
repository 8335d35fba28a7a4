package api

import (
	"strconv"

	"creche-backend/internal/rules"
	"creche-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

func NewPagination(total int64, p store.Page) Pagination {
	pages := int64(0)
	if p.Size > 0 {
		pages = (total + int64(p.Size) - 1) / int64(p.Size)
	}
	return Pagination{Total: total, Page: p.Number, Limit: p.Size, Pages: pages}
}

func OK(c *fiber.Ctx, data any) error {
	return c.JSON(Envelope{Success: true, Data: data})
}

func Created(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Success: true, Message: message, Data: data})
}

func Message(c *fiber.Ctx, message string) error {
	return c.JSON(Envelope{Success: true, Message: message})
}

// ParamID reads a positive integer route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, rules.InvalidArgument("invalid " + name)
	}
	return uint(v), nil
}

// QueryPage reads page and limit query parameters.
func QueryPage(c *fiber.Ctx, defaultSize int) store.Page {
	return store.Page{
		Number: c.QueryInt("page", 1),
		Size:   c.QueryInt("limit", defaultSize),
	}.Normalize(defaultSize)
}

// Body parses the JSON body into v.
func Body(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return rules.InvalidArgument("invalid request body")
	}
	return nil
}
