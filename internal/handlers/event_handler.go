package handlers

import (
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type EventHandler struct {
	eventService     *services.EventService
	pledgeService    *services.PledgeService
	dashboardService *services.DashboardService
}

func NewEventHandler(eventService *services.EventService, pledgeService *services.PledgeService, dashboardService *services.DashboardService) *EventHandler {
	return &EventHandler{
		eventService:     eventService,
		pledgeService:    pledgeService,
		dashboardService: dashboardService,
	}
}

func (h *EventHandler) List(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	events, total, err := h.eventService.List(c.UserContext(), services.EventFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Limit:    limit,
		Offset:   offset,
	})
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

// Get is public. A valid token lets owners and admins see events that are
// not yet public.
func (h *EventHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid event ID")
	}
	viewer, isAdmin := uuid.Nil, false
	if actor, ok := actorFrom(c); ok {
		viewer, isAdmin = actor.ID, actor.IsAdmin()
	}

	event, err := h.eventService.Get(c.UserContext(), id, viewer, isAdmin)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(services.EventView(event))
}

func (h *EventHandler) Create(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	event, err := h.eventService.Create(c.UserContext(), actor.ID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(services.EventView(event))
}

func (h *EventHandler) Mine(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	events, err := h.eventService.ListByOrganizer(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"events": services.EventViews(events)})
}

func (h *EventHandler) Update(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid event ID")
	}
	var req dto.UpdateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	event, err := h.eventService.Update(c.UserContext(), actor.ID, id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(services.EventView(event))
}

func (h *EventHandler) Delete(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid event ID")
	}
	if err := h.eventService.Delete(c.UserContext(), actor.ID, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Event deleted successfully"})
}

func (h *EventHandler) Close(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid event ID")
	}
	event, err := h.eventService.Close(c.UserContext(), actor.ID, actor.IsAdmin(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(services.EventView(event))
}

func (h *EventHandler) Analytics(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid event ID")
	}
	stats, err := h.dashboardService.EventAnalytics(c.UserContext(), actor.ID, actor.IsAdmin(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *EventHandler) Pledges(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid event ID")
	}
	pledges, err := h.pledgeService.ListForEvent(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"pledges": pledges})
}
