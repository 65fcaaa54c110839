package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Health     *handlers.HealthHandler
	Events     *handlers.EventHandler
	Pledges    *handlers.PledgeHandler
	Moderation *handlers.ModerationHandler
	Reports    *handlers.ReportHandler
	Stats      *handlers.StatsHandler
	Dashboards *handlers.DashboardHandler
}

func Setup(app *fiber.App, cfg *config.Config, roles middleware.RoleChecker, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached:      tooManyRequests,
	}))

	api.Get("/health", h.Health.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached:      tooManyRequests,
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	jwt := middleware.JWTProtected(cfg)
	api.Post("/auth/logout", jwt, h.Auth.Logout)
	api.Get("/auth/me", jwt, h.Auth.Me)

	organizer := middleware.RoleRequired(roles, models.RoleOrganizer, models.RoleAdmin)

	// Static paths are registered before /:id so they are not captured by it.
	events := api.Group("/events")
	events.Get("/", h.Events.List)
	events.Get("/mine", jwt, organizer, h.Events.Mine)
	events.Post("/", jwt, organizer, h.Events.Create)
	events.Get("/:id", middleware.OptionalJWT(cfg), h.Events.Get)
	events.Put("/:id", jwt, organizer, h.Events.Update)
	events.Delete("/:id", jwt, organizer, h.Events.Delete)
	events.Post("/:id/close", jwt, organizer, h.Events.Close)
	events.Get("/:id/pledges", h.Events.Pledges)
	events.Get("/:id/analytics", jwt, h.Events.Analytics)

	// Pledge creation: 20 per hour per donor
	pledgeLimit := limiter.New(limiter.Config{
		Max:               20,
		Expiration:        1 * time.Hour,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, err := identity.GetUserID(c); err == nil {
				return "pledge:" + id.String()
			}
			return "pledge-ip:" + c.IP()
		},
		LimitReached: tooManyRequests,
	})
	pledges := api.Group("/pledges", jwt)
	pledges.Post("/", pledgeLimit, h.Pledges.Create)
	pledges.Get("/mine", h.Pledges.Mine)
	pledges.Put("/:id/status", organizer, h.Pledges.UpdateStatus)

	dashboard := api.Group("/dashboard", jwt)
	dashboard.Get("/admin", middleware.AdminRequired(roles), h.Dashboards.Admin)
	dashboard.Get("/organizer", organizer, h.Dashboards.Organizer)
	dashboard.Get("/donor", h.Dashboards.Donor)

	admin := api.Group("/admin", jwt, middleware.AdminRequired(roles))
	admin.Get("/events/pending", h.Moderation.ListPending)
	admin.Get("/events/flagged", h.Moderation.ListFlagged)
	admin.Put("/events/:id/approve", h.Moderation.Approve)
	admin.Put("/events/:id/reject", h.Moderation.Reject)
	admin.Put("/events/:id/flag", h.Moderation.Flag)
	admin.Post("/events/:id/reconcile", h.Moderation.Reconcile)

	reports := admin.Group("/reports")
	reports.Post("/daily", h.Reports.GenerateDaily)
	reports.Post("/weekly", h.Reports.GenerateWeekly)
	reports.Post("/monthly", h.Reports.GenerateMonthly)
	reports.Post("/event/:id", h.Reports.GenerateEvent)
	reports.Get("/", h.Reports.List)
	reports.Delete("/cleanup", h.Reports.Cleanup)
	reports.Get("/:id", h.Reports.Get)
	reports.Get("/:id/download", h.Reports.Download)

	stats := admin.Group("/stats")
	stats.Get("/daily", h.Stats.Daily)
	stats.Get("/weekly", h.Stats.Weekly)
	stats.Get("/monthly", h.Stats.Monthly)
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
		Error: true, Message: "Too many requests, please try again later",
	})
}
