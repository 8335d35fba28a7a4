package auth

import (
	"context"
	"errors"
	"strings"

	"creche-backend/internal/logging"
	"creche-backend/internal/models"
	"creche-backend/internal/rules"
	"creche-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	ctxClaimsKey   = "claims"
)

type UserGetter interface {
	GetUser(ctx context.Context, id uint) (models.User, error)
}

// JWTMiddleware resolves the bearer token into the caller's id and role.
// Revoked tokens are rejected, and so is every request while the revocation
// list cannot be read. The role is taken from the stored user, not the token,
// so role changes and deletions apply immediately.
func JWTMiddleware(tokens *Tokens, revoker Revoker, users UserGetter, logger *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return rules.Unauthenticated("missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return rules.Unauthenticated("Authorization header must be 'Bearer <token>'")
		}

		claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			return rules.Unauthenticated("invalid or expired token")
		}

		revoked, err := revoker.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			logger.Warn(c.UserContext(), "revocation check failed", "err", err)
			return rules.Unauthenticated("could not verify token")
		}
		if revoked {
			return rules.Unauthenticated("token has been revoked")
		}

		user, err := users.GetUser(c.UserContext(), claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return rules.Unauthenticated("account no longer exists")
		}
		if err != nil {
			return rules.Internal(err)
		}

		c.Locals(CtxUserIDKey, user.ID)
		c.Locals(CtxUserRoleKey, user.Role)
		c.Locals(ctxClaimsKey, claims)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return rules.Unauthenticated("missing credentials")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return rules.Forbidden("not allowed for role " + string(role))
	}
}

// ActorFrom returns the caller resolved by JWTMiddleware.
func ActorFrom(c *fiber.Ctx) (rules.Actor, error) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return rules.Actor{}, rules.Unauthenticated("missing credentials")
	}
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return rules.Actor{}, rules.Unauthenticated("missing credentials")
	}
	return rules.Actor{ID: id, Role: role}, nil
}

func claimsFrom(c *fiber.Ctx) (*JWTCustomClaims, bool) {
	claims, ok := c.Locals(ctxClaimsKey).(*JWTCustomClaims)
	return claims, ok
}
