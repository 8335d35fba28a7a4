package admin

import (
	"creche-backend/internal/api"
	"creche-backend/internal/auth"
	"creche-backend/internal/models"
	"creche-backend/internal/rules"
	"creche-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// GET /api/admin/users?role=manager&page=1&limit=20
func ListUsersHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := store.UserFilter{Page: api.QueryPage(c, 20)}
		if v := c.Query("role"); v != "" {
			role, err := models.ParseRole(v)
			if err != nil {
				return rules.InvalidArgument("unknown role")
			}
			f.Role = &role
		}

		users, total, err := engine.Store().ListUsers(c.UserContext(), f)
		if err != nil {
			return rules.Internal(err)
		}
		if users == nil {
			users = []models.User{}
		}
		return api.OK(c, fiber.Map{
			"users":      users,
			"pagination": api.NewPagination(total, f.Page),
		})
	}
}

// DELETE /api/admin/users/:id
func DeleteUserHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := engine.DeleteUser(c.UserContext(), actor, id); err != nil {
			return err
		}
		return api.Message(c, "user deleted")
	}
}

// PUT /api/admin/users/:id/role
func ChangeRoleHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body ChangeRoleRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}
		role, err := models.ParseRole(body.Role)
		if err != nil {
			return rules.InvalidArgument("unknown role")
		}

		u, err := engine.ChangeRole(c.UserContext(), actor, id, role)
		if err != nil {
			return err
		}
		return api.OK(c, u)
	}
}
