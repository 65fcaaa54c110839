package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// StatsHandler returns analytics computed on request without persisting a
// report.
type StatsHandler struct {
	statsService *services.StatsService
	now          func() time.Time
}

func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (h *StatsHandler) Daily(c *fiber.Ctx) error {
	date, err := dateOr(c.Query("date"), h.now())
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.statsService.Daily(c.UserContext(), date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *StatsHandler) Weekly(c *fiber.Ctx) error {
	start, err := dateOr(c.Query("start_date"), h.now().AddDate(0, 0, -6))
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.statsService.Weekly(c.UserContext(), start)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *StatsHandler) Monthly(c *fiber.Ctx) error {
	now := h.now()
	year := c.QueryInt("year", now.Year())
	month := c.QueryInt("month", int(now.Month()))
	stats, err := h.statsService.Monthly(c.UserContext(), year, month)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
