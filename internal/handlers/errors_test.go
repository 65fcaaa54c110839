package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &services.Error{Kind: services.ErrValidation, Msg: "bad amount"}, fiber.StatusBadRequest},
		{"email taken", services.ErrEmailTaken, fiber.StatusConflict},
		{"bad credentials", services.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{"bad refresh token", services.ErrInvalidToken, fiber.StatusUnauthorized},
		{"not found", services.ErrEventNotFound, fiber.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", services.ErrReportNotFound), fiber.StatusNotFound},
		{"invalid state", services.ErrEventNotActive, fiber.StatusConflict},
		{"forbidden", services.ErrNotEventOwner, fiber.StatusForbidden},
		{"dependency", &services.Error{Kind: services.ErrDependency, Msg: "save failed", Err: context.DeadlineExceeded}, fiber.StatusServiceUnavailable},
		{"untyped", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRespondErrorHidesDependencyDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return respondError(c, &services.Error{
			Kind: services.ErrDependency,
			Msg:  "save report failed",
			Err:  errors.New("pq: connection refused to 10.0.0.5"),
		})
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get(fiber.HeaderRetryAfter); got != "2" {
		t.Errorf("Retry-After = %q", got)
	}
	var body dto.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Error || body.Message != "database unavailable, please retry" {
		t.Errorf("body = %+v", body)
	}
}

func TestPagination(t *testing.T) {
	app := fiber.New()
	var limit, offset int
	app.Get("/", func(c *fiber.Ctx) error {
		limit, offset = pagination(c)
		return nil
	})
	if _, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/?limit=500&offset=40", nil), -1); err != nil {
		t.Fatalf("Test: %v", err)
	}
	if limit != 500 || offset != 40 {
		t.Errorf("pagination = %d, %d", limit, offset)
	}
	if got := services.ClampLimit(limit); got != 100 {
		t.Errorf("ClampLimit(%d) = %d", limit, got)
	}
}
