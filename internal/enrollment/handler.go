package enrollment

import (
	"creche-backend/internal/api"
	"creche-backend/internal/auth"
	"creche-backend/internal/models"
	"creche-backend/internal/rules"

	"github.com/gofiber/fiber/v2"
)

type CreateRequest struct {
	ChildID   uint `json:"child_id"`
	DaycareID uint `json:"daycare_id"`
}

type DecideRequest struct {
	Status string `json:"status"`
}

func orEmpty(list []models.Enrollment) []models.Enrollment {
	if list == nil {
		return []models.Enrollment{}
	}
	return list
}

// GET /api/enrollments
func ListMyEnrollmentsHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		list, err := engine.Store().ListEnrollmentsByUser(c.UserContext(), actor.ID)
		if err != nil {
			return rules.Internal(err)
		}
		return api.OK(c, orEmpty(list))
	}
}

// GET /api/daycares/:id/enrollments
func ListDaycareEnrollmentsHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		list, err := engine.ListDaycareEnrollments(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return api.OK(c, orEmpty(list))
	}
}

// POST /api/enrollments
func CreateEnrollmentHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var body CreateRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}
		if body.ChildID == 0 || body.DaycareID == 0 {
			return rules.InvalidArgument("child_id and daycare_id are required")
		}

		en, err := engine.RequestEnrollment(c.UserContext(), actor, body.ChildID, body.DaycareID)
		if err != nil {
			return err
		}
		return api.Created(c, "enrollment requested", en)
	}
}

// PUT /api/enrollments/:id/status
func DecideEnrollmentHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body DecideRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}
		decision, err := rules.ParseDecision(body.Status)
		if err != nil {
			return err
		}

		en, err := engine.Decide(c.UserContext(), actor, id, decision)
		if err != nil {
			return err
		}
		return api.OK(c, en)
	}
}

// DELETE /api/enrollments/:id
func DeleteEnrollmentHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := engine.DeleteEnrollment(c.UserContext(), actor, id); err != nil {
			return err
		}
		return api.Message(c, "enrollment removed")
	}
}
