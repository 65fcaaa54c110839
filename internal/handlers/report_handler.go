package handlers

import (
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	reportService *services.ReportService
	now           func() time.Time
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// GenerateDaily defaults to the current UTC day.
func (h *ReportHandler) GenerateDaily(c *fiber.Ctx) error {
	var req dto.GenerateDailyRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	date, err := dateOr(req.Date, h.now())
	if err != nil {
		return respondError(c, err)
	}
	return h.generate(c, services.GenerateRequest{Type: models.ReportDaily, Date: date})
}

// GenerateWeekly defaults to the seven days ending today.
func (h *ReportHandler) GenerateWeekly(c *fiber.Ctx) error {
	var req dto.GenerateWeeklyRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	start, err := dateOr(req.StartDate, h.now().AddDate(0, 0, -6))
	if err != nil {
		return respondError(c, err)
	}
	return h.generate(c, services.GenerateRequest{Type: models.ReportWeekly, Date: start})
}

// GenerateMonthly defaults to the current month when neither field is set.
func (h *ReportHandler) GenerateMonthly(c *fiber.Ctx) error {
	var req dto.GenerateMonthlyRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Year == 0 && req.Month == 0 {
		now := h.now()
		req.Year, req.Month = now.Year(), int(now.Month())
	}
	return h.generate(c, services.GenerateRequest{Type: models.ReportMonthly, Year: req.Year, Month: req.Month})
}

func (h *ReportHandler) GenerateEvent(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid event ID")
	}
	return h.generate(c, services.GenerateRequest{Type: models.ReportEvent, EventID: id})
}

func (h *ReportHandler) generate(c *fiber.Ctx, req services.GenerateRequest) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	report, err := h.reportService.Generate(c.UserContext(), req, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	f := services.ReportFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}
	for param, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if v := c.Query(param); v != "" {
			t, err := services.ParseDate(v)
			if err != nil {
				return respondError(c, err)
			}
			*dst = &t
		}
	}

	reports, total, err := h.reportService.List(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ReportListResponse{
		Reports: reports,
		Total:   total,
		Limit:   services.ClampLimit(limit),
		Offset:  offset,
	})
}

// Get returns the stored data payload as is. Report metadata is served by
// List and by the generate endpoints.
func (h *ReportHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}
	report, err := h.reportService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(report.Data)
}

// Download sends the stored payload as an attachment, as JSON by default or
// as a workbook with ?format=xlsx.
func (h *ReportHandler) Download(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	var (
		name        string
		body        []byte
		err         error
		contentType string
	)
	switch c.Query("format", "json") {
	case "json":
		name, body, err = h.reportService.Download(c.UserContext(), id)
		contentType = fiber.MIMEApplicationJSON
	case "xlsx":
		name, body, err = h.reportService.DownloadXLSX(c.UserContext(), id)
		contentType = xlsxContentType
	default:
		return badRequest(c, "format must be json or xlsx")
	}
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Send(body)
}

func (h *ReportHandler) Cleanup(c *fiber.Ctx) error {
	days := c.QueryInt("days", services.MinCleanupDays)
	deleted, applied, err := h.reportService.Cleanup(c.UserContext(), days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.CleanupResponse{Deleted: deleted, Days: applied})
}

func parseOptionalBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func dateOr(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return services.ParseDate(value)
}
