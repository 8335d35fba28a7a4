package child

import (
	"errors"
	"strings"
	"time"

	"creche-backend/internal/api"
	"creche-backend/internal/auth"
	"creche-backend/internal/models"
	"creche-backend/internal/rules"
	"creche-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

type ChildRequest struct {
	Name      *string `json:"name"`
	BirthDate *string `json:"birth_date"`
	Gender    *string `json:"gender"`
	Allergies *string `json:"allergies"`
	Notes     *string `json:"notes"`
}

func parseBirthDate(s string) (datatypes.Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return datatypes.Date{}, rules.InvalidArgument("birth_date must be YYYY-MM-DD")
	}
	if t.After(time.Now()) {
		return datatypes.Date{}, rules.InvalidArgument("birth_date cannot be in the future")
	}
	return datatypes.Date(t), nil
}

func optional(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// loadOwned returns the child only to its guardian. Anyone else gets
// NotFound so the child's existence is not revealed.
func loadOwned(c *fiber.Ctx, engine *rules.Engine) (models.Child, error) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return models.Child{}, err
	}
	id, err := api.ParamID(c, "id")
	if err != nil {
		return models.Child{}, err
	}
	s := engine.Store()
	if !rules.CanManageChild(c.UserContext(), s, actor.ID, id) {
		return models.Child{}, rules.NotFound("child not found")
	}
	ch, err := s.GetChild(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Child{}, rules.NotFound("child not found")
		}
		return models.Child{}, rules.Internal(err)
	}
	return ch, nil
}

// GET /api/children
func ListChildrenHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		list, err := engine.Store().ListChildrenByOwner(c.UserContext(), actor.ID)
		if err != nil {
			return rules.Internal(err)
		}
		if list == nil {
			list = []models.Child{}
		}
		return api.OK(c, list)
	}
}

// GET /api/children/:id
func GetChildHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ch, err := loadOwned(c, engine)
		if err != nil {
			return err
		}
		return api.OK(c, ch)
	}
}

// POST /api/children
func CreateChildHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var body ChildRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}
		name := ""
		if body.Name != nil {
			name = strings.TrimSpace(*body.Name)
		}
		if name == "" || body.BirthDate == nil {
			return rules.InvalidArgument("name and birth_date are required")
		}
		birth, err := parseBirthDate(*body.BirthDate)
		if err != nil {
			return err
		}

		ch := models.Child{
			UserID:    actor.ID,
			Name:      name,
			BirthDate: birth,
			Gender:    optional(body.Gender),
			Allergies: optional(body.Allergies),
			Notes:     optional(body.Notes),
		}
		if err := engine.Store().CreateChild(c.UserContext(), &ch); err != nil {
			return rules.Internal(err)
		}
		return api.Created(c, "child registered", ch)
	}
}

// PUT /api/children/:id
func UpdateChildHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ChildRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}
		ch, err := loadOwned(c, engine)
		if err != nil {
			return err
		}

		if body.Name != nil {
			if ch.Name = strings.TrimSpace(*body.Name); ch.Name == "" {
				return rules.InvalidArgument("name cannot be empty")
			}
		}
		if body.BirthDate != nil {
			if ch.BirthDate, err = parseBirthDate(*body.BirthDate); err != nil {
				return err
			}
		}
		if body.Gender != nil {
			ch.Gender = optional(body.Gender)
		}
		if body.Allergies != nil {
			ch.Allergies = optional(body.Allergies)
		}
		if body.Notes != nil {
			ch.Notes = optional(body.Notes)
		}

		if err := engine.Store().UpdateChild(c.UserContext(), &ch); err != nil {
			return rules.Internal(err)
		}
		return api.OK(c, ch)
	}
}

// DELETE /api/children/:id
func DeleteChildHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := engine.DeleteChild(c.UserContext(), actor, id); err != nil {
			return err
		}
		return api.Message(c, "child removed")
	}
}
