package admin

import (
	"strconv"

	"creche-backend/internal/api"
	"creche-backend/internal/daycare"
	"creche-backend/internal/models"
	"creche-backend/internal/rules"
	"creche-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserRole    models.UserRole    `json:"user_role"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Before      any                `json:"before"`
	After       any                `json:"after"`
}

// GET /api/admin/daycares?page=1&limit=20
func ListDaycaresHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := api.QueryPage(c, 20)
		list, total, err := engine.Store().ListDaycares(c.UserContext(), store.DaycareFilter{
			Search: c.Query("search"),
			Sort:   store.SortNewest,
			Page:   page,
		})
		if err != nil {
			return rules.Internal(err)
		}
		if list == nil {
			list = []models.Daycare{}
		}
		return api.OK(c, fiber.Map{
			"daycares":   list,
			"pagination": api.NewPagination(total, page),
		})
	}
}

// GET /api/admin/reviews?page=1&limit=20
func ListReviewsHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := api.QueryPage(c, 20)
		list, total, err := engine.Store().ListReviews(c.UserContext(), page)
		if err != nil {
			return rules.Internal(err)
		}
		out := make([]daycare.ReviewView, 0, len(list))
		for _, r := range list {
			out = append(out, daycare.NewReviewView(r))
		}
		return api.OK(c, fiber.Map{
			"reviews":    out,
			"pagination": api.NewPagination(total, page),
		})
	}
}

func queryUint(c *fiber.Ctx, key string) uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

// GET /api/admin/audit-logs?entity_type=enrollment&entity_id=1&user_id=2&limit=100
func ListAuditLogsHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logs, err := engine.Store().ListAuditLogs(c.UserContext(), store.AuditFilter{
			EntityType: c.Query("entity_type"),
			EntityID:   queryUint(c, "entity_id"),
			UserID:     queryUint(c, "user_id"),
			Limit:      c.QueryInt("limit", 100),
		})
		if err != nil {
			return rules.Internal(err)
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				UserID:      l.UserID,
				UserRole:    l.UserRole,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				Before:      l.BeforeData,
				After:       l.AfterData,
			})
		}
		return api.OK(c, resp)
	}
}
