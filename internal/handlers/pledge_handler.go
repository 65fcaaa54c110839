package handlers

import (
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PledgeHandler struct {
	pledgeService *services.PledgeService
}

func NewPledgeHandler(pledgeService *services.PledgeService) *PledgeHandler {
	return &PledgeHandler{pledgeService: pledgeService}
}

func (h *PledgeHandler) Create(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreatePledgeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.EventID == uuid.Nil {
		return badRequest(c, "event_id is required")
	}

	pledge, err := h.pledgeService.RecordPledge(c.UserContext(), actor.ID, req.EventID, req.Amount, services.PledgeOptions{
		IsAnonymous:   req.IsAnonymous,
		Message:       req.Message,
		PaymentStatus: models.PaymentPending,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(services.Receipt(pledge))
}

func (h *PledgeHandler) Mine(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	pledges, err := h.pledgeService.ListForDonor(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"pledges": pledges})
}

// UpdateStatus is restricted to the organizer of the pledge's event; the
// service enforces ownership.
func (h *PledgeHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid pledge ID")
	}
	var req dto.UpdatePledgeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.pledgeService.UpdatePledgeStatus(c.UserContext(), actor.ID, id, req.PaymentStatus)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
