package middleware

import (
	"context"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RoleChecker reports whether a user currently holds one of roles.
type RoleChecker interface {
	HasRole(ctx context.Context, userID uuid.UUID, roles ...string) (bool, error)
}

// RoleRequired must run after JWTProtected. The role is read from the store,
// not the token, so demotions apply immediately.
func RoleRequired(checker RoleChecker, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := identity.GetActor(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		ok, err := checker.HasRole(c.UserContext(), actor.ID, roles...)
		if err != nil {
			slog.Error("role check failed", "user_id", actor.ID.String(), "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Error: true, Message: "Service temporarily unavailable",
			})
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Access denied: insufficient permissions",
			})
		}
		return c.Next()
	}
}

func AdminRequired(checker RoleChecker) fiber.Handler {
	return RoleRequired(checker, models.RoleAdmin)
}
