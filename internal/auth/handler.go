package auth

import (
	"errors"
	"net/mail"
	"strings"

	"creche-backend/internal/api"
	"creche-backend/internal/logging"
	"creche-backend/internal/models"
	"creche-backend/internal/rules"
	"creche-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

// Service bundles what the auth handlers need.
type Service struct {
	Store   store.Store
	Tokens  *Tokens
	Revoker Revoker
	Logger  *logging.Logger
}

type RegisterRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// NormalizePhone trims the phone; empty becomes nil so the unique index
// ignores it.
func NormalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	p := strings.TrimSpace(*phone)
	if p == "" {
		return nil
	}
	return &p
}

// RegisterHandler creates a guardian or manager account. Admin accounts
// cannot be self-registered.
func RegisterHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Email = NormalizeEmail(body.Email)
		if body.Name == "" || body.Email == "" || body.Password == "" {
			return rules.InvalidArgument("name, email and password are required")
		}
		if !ValidEmail(body.Email) {
			return rules.InvalidArgument("invalid email")
		}
		if len(body.Password) < MinPasswordLength {
			return rules.InvalidArgument("password must have at least 6 characters")
		}

		role := models.RoleParent
		if body.Role != "" {
			r, err := models.ParseRole(body.Role)
			if err != nil {
				return rules.InvalidArgument("unknown role")
			}
			if r == models.RoleAdmin {
				return rules.Forbidden("admin accounts cannot be self-registered")
			}
			role = r
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return rules.Internal(err)
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: hash,
			Phone:        NormalizePhone(body.Phone),
			Role:         role,
		}
		if err := svc.Store.CreateUser(c.UserContext(), &user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return rules.Conflict("email or phone already registered")
			}
			return rules.Internal(err)
		}

		token, err := svc.Tokens.Generate(&user)
		if err != nil {
			return rules.Internal(err)
		}
		svc.Logger.Info(c.UserContext(), "user registered", "user_id", user.ID, "role", string(user.Role))

		return api.Created(c, "account created", TokenResponse{Token: token, User: user})
	}
}

func LoginHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}

		body.Email = NormalizeEmail(body.Email)
		if body.Email == "" || body.Password == "" {
			return rules.InvalidArgument("email and password are required")
		}

		user, err := svc.Store.GetUserByEmail(c.UserContext(), body.Email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return rules.Internal(err)
		}
		if err != nil || !CheckPassword(user.PasswordHash, body.Password) {
			return rules.Unauthenticated("invalid email or password")
		}

		token, err := svc.Tokens.Generate(&user)
		if err != nil {
			return rules.Internal(err)
		}

		return api.OK(c, TokenResponse{Token: token, User: user})
	}
}

// LogoutHandler revokes the presented token until it expires.
func LogoutHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := claimsFrom(c)
		if !ok {
			return rules.Unauthenticated("missing credentials")
		}
		if err := svc.Revoker.Revoke(c.UserContext(), claims.ID, svc.Tokens.Remaining(claims)); err != nil {
			return rules.Internal(err)
		}
		return api.Message(c, "logged out")
	}
}

func MeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}
		user, err := svc.Store.GetUser(c.UserContext(), actor.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return rules.NotFound("user not found")
			}
			return rules.Internal(err)
		}
		return api.OK(c, user)
	}
}
