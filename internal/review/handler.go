package review

import (
	"strconv"

	"creche-backend/internal/api"
	"creche-backend/internal/auth"
	"creche-backend/internal/daycare"
	"creche-backend/internal/rules"

	"github.com/gofiber/fiber/v2"
)

type CreateRequest struct {
	DaycareID  uint    `json:"daycare_id"`
	Stars      int     `json:"stars"`
	Comment    *string `json:"comment"`
	Recommends *bool   `json:"recommends"`
}

type UpdateRequest struct {
	Stars      *int    `json:"stars"`
	Comment    *string `json:"comment"`
	Recommends *bool   `json:"recommends"`
}

// GET /api/daycares/:id/reviews?verified=true
func ListDaycareReviewsHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}

		var verified *bool
		if v := c.Query("verified"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return rules.InvalidArgument("verified must be true or false")
			}
			verified = &b
		}

		list, err := engine.Store().ListReviewsByDaycare(c.UserContext(), id, verified)
		if err != nil {
			return rules.Internal(err)
		}
		out := make([]daycare.ReviewView, 0, len(list))
		for _, r := range list {
			out = append(out, daycare.NewReviewView(r))
		}
		return api.OK(c, out)
	}
}

// GET /api/daycares/:id/reviews/stats
func DaycareStatsHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		rating, err := engine.DaycareRating(c.UserContext(), id)
		if err != nil {
			return err
		}
		return api.OK(c, rating)
	}
}

// POST /api/reviews
func CreateReviewHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var body CreateRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}
		if body.DaycareID == 0 {
			return rules.InvalidArgument("daycare_id is required")
		}

		r, err := engine.SubmitReview(c.UserContext(), actor, body.DaycareID, rules.ReviewInput{
			Stars:      body.Stars,
			Comment:    body.Comment,
			Recommends: body.Recommends,
		})
		if err != nil {
			return err
		}
		// Reload so the response carries the author like every other review read.
		if full, err := engine.Store().GetReview(c.UserContext(), r.ID); err == nil {
			r = full
		}
		return api.Created(c, "review published", daycare.NewReviewView(r))
	}
}

// PUT /api/reviews/:id
func UpdateReviewHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}

		r, err := engine.UpdateReview(c.UserContext(), actor, id, rules.ReviewPatch{
			Stars:      body.Stars,
			Comment:    body.Comment,
			Recommends: body.Recommends,
		})
		if err != nil {
			return err
		}
		return api.OK(c, daycare.NewReviewView(r))
	}
}

// DELETE /api/reviews/:id
func DeleteReviewHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := engine.DeleteReview(c.UserContext(), actor, id); err != nil {
			return err
		}
		return api.Message(c, "review removed")
	}
}
