package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ModerationHandler serves the admin event review queue and the manual
// reconciliation endpoint.
type ModerationHandler struct {
	moderationService *services.ModerationService
	pledgeService     *services.PledgeService
}

func NewModerationHandler(moderationService *services.ModerationService, pledgeService *services.PledgeService) *ModerationHandler {
	return &ModerationHandler{
		moderationService: moderationService,
		pledgeService:     pledgeService,
	}
}

func (h *ModerationHandler) ListPending(c *fiber.Ctx) error {
	return h.list(c, h.moderationService.ListPending)
}

func (h *ModerationHandler) ListFlagged(c *fiber.Ctx) error {
	return h.list(c, h.moderationService.ListFlagged)
}

func (h *ModerationHandler) list(c *fiber.Ctx, fetch func(ctx context.Context, limit, offset int) ([]models.Event, int64, error)) error {
	limit, offset := pagination(c)
	if offset < 0 {
		return badRequest(c, "offset must be zero or greater")
	}
	events, total, err := fetch(c.UserContext(), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.EventListResponse{
		Events: services.EventViews(events),
		Total:  total,
		Limit:  services.ClampLimit(limit),
		Offset: offset,
	})
}

func (h *ModerationHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, func(admin, event uuid.UUID, _ string) (*models.Event, error) {
		return h.moderationService.Approve(c.UserContext(), admin, event)
	})
}

func (h *ModerationHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, func(admin, event uuid.UUID, reason string) (*models.Event, error) {
		return h.moderationService.Reject(c.UserContext(), admin, event, reason)
	})
}

func (h *ModerationHandler) Flag(c *fiber.Ctx) error {
	return h.decide(c, func(admin, event uuid.UUID, reason string) (*models.Event, error) {
		return h.moderationService.Flag(c.UserContext(), admin, event, reason)
	})
}

func (h *ModerationHandler) decide(c *fiber.Ctx, apply func(admin, event uuid.UUID, reason string) (*models.Event, error)) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid event ID")
	}
	var req dto.ModerationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	event, err := apply(actor.ID, id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(services.EventView(event))
}

// Reconcile recomputes an event's running total from its completed pledges.
func (h *ModerationHandler) Reconcile(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid event ID")
	}
	resp, err := h.pledgeService.Reconcile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
