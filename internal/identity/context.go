package identity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Actor is the authenticated caller as described by the access token.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  string
}

func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}

// GetActor extracts the caller from JWT claims in context.
func GetActor(c *fiber.Ctx) (Actor, error) {
	claims, err := claimsFrom(c)
	if err != nil {
		return Actor{}, err
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return Actor{}, errors.New("missing sub claim")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return Actor{}, err
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return Actor{ID: id, Email: email, Role: role}, nil
}

// GetUserID extracts the user UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	actor, err := GetActor(c)
	if err != nil {
		return uuid.Nil, err
	}
	return actor.ID, nil
}

func claimsFrom(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
