package user

import (
	"errors"
	"strings"

	"creche-backend/internal/api"
	"creche-backend/internal/auth"
	"creche-backend/internal/models"
	"creche-backend/internal/rules"
	"creche-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

type UpdateProfileRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	ProfilePhoto *string `json:"profile_photo"`
}

type Profile struct {
	models.User
	Daycares []models.Daycare `json:"daycares,omitempty"`
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

func currentUser(c *fiber.Ctx, s store.Store) (models.User, error) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.GetUser(c.UserContext(), actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, rules.NotFound("user not found")
		}
		return models.User{}, rules.Internal(err)
	}
	return u, nil
}

// GET /api/users/profile
func GetProfileHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := engine.Store()
		u, err := currentUser(c, s)
		if err != nil {
			return err
		}

		p := Profile{User: u}
		if u.Role == models.RoleManager {
			if p.Daycares, err = s.ListDaycaresByOwner(c.UserContext(), u.ID); err != nil {
				return rules.Internal(err)
			}
		}
		return api.OK(c, p)
	}
}

// PUT /api/users/profile
func UpdateProfileHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateProfileRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}
		s := engine.Store()
		u, err := currentUser(c, s)
		if err != nil {
			return err
		}

		if body.Name != nil {
			if u.Name = strings.TrimSpace(*body.Name); u.Name == "" {
				return rules.InvalidArgument("name cannot be empty")
			}
		}
		if body.Email != nil {
			email := auth.NormalizeEmail(*body.Email)
			if !auth.ValidEmail(email) {
				return rules.InvalidArgument("invalid email")
			}
			u.Email = email
		}
		if body.Phone != nil {
			u.Phone = auth.NormalizePhone(body.Phone)
		}
		if body.ProfilePhoto != nil {
			u.ProfilePhoto = optional(body.ProfilePhoto)
		}

		if err := s.UpdateUser(c.UserContext(), &u); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return rules.Conflict("email or phone already in use")
			}
			return rules.Internal(err)
		}
		return api.OK(c, u)
	}
}

// DELETE /api/users/profile
func DeleteAccountHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		if err := engine.DeleteAccount(c.UserContext(), actor); err != nil {
			return err
		}
		return api.Message(c, "account deleted")
	}
}

// POST /api/users/become-manager
// The role lives in the token as well, so a fresh token is returned.
func BecomeManagerHandler(engine *rules.Engine, tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		u, err := engine.BecomeManager(c.UserContext(), actor)
		if err != nil {
			return err
		}
		token, err := tokens.Generate(&u)
		if err != nil {
			return rules.Internal(err)
		}
		return api.OK(c, auth.TokenResponse{Token: token, User: u})
	}
}
