package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testCfg = &config.Config{JWTSecret: "middleware-secret"}

type stubRoles struct {
	roles map[uuid.UUID]string
	err   error
}

func (s stubRoles) HasRole(_ context.Context, id uuid.UUID, roles ...string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for _, r := range roles {
		if s.roles[id] == r {
			return true, nil
		}
	}
	return false, nil
}

func token(t *testing.T, id uuid.UUID, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id.String(),
		"role": role,
		"exp":  time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(testCfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func call(t *testing.T, app *fiber.App, bearer string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	return resp.StatusCode
}

func TestRoleRequiredUsesStoredRole(t *testing.T) {
	admin, promoted, donor := uuid.New(), uuid.New(), uuid.New()
	roles := stubRoles{roles: map[uuid.UUID]string{
		admin:    models.RoleAdmin,
		promoted: models.RoleAdmin,
		donor:    models.RoleDonor,
	}}

	app := fiber.New()
	app.Get("/", JWTProtected(testCfg), AdminRequired(roles), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	tests := []struct {
		name   string
		bearer string
		want   int
	}{
		{"no token", "", fiber.StatusUnauthorized},
		{"admin", token(t, admin, models.RoleAdmin), fiber.StatusNoContent},
		// the token predates the promotion
		{"promoted", token(t, promoted, models.RoleDonor), fiber.StatusNoContent},
		// a stale admin claim does not help
		{"donor claiming admin", token(t, donor, models.RoleAdmin), fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := call(t, app, tt.bearer); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRoleRequiredStoreFailure(t *testing.T) {
	app := fiber.New()
	app.Get("/", JWTProtected(testCfg), RoleRequired(stubRoles{err: errors.New("db down")}, models.RoleOrganizer), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	if got := call(t, app, token(t, uuid.New(), models.RoleOrganizer)); got != fiber.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", got)
	}
}

func TestOptionalJWT(t *testing.T) {
	id := uuid.New()
	app := fiber.New()
	app.Get("/", OptionalJWT(testCfg), func(c *fiber.Ctx) error {
		if actor, err := identity.GetActor(c); err == nil && actor.ID == id {
			return c.SendStatus(fiber.StatusOK)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	if got := call(t, app, ""); got != fiber.StatusNoContent {
		t.Errorf("anonymous = %d", got)
	}
	if got := call(t, app, token(t, id, models.RoleDonor)); got != fiber.StatusOK {
		t.Errorf("authenticated = %d", got)
	}
	if got := call(t, app, "garbage"); got != fiber.StatusUnauthorized {
		t.Errorf("bad token = %d", got)
	}
}
