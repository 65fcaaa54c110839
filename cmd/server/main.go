package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/shopspring/decimal"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()
	console := logging.Setup(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Amounts are sent as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewFanout(
		logging.Route{Handler: console, Min: logging.ConsoleLevel(cfg.LogFormat)},
		logging.Route{Handler: pgLogHandler, Min: slog.LevelError},
	)))

	// Services
	authService := services.NewAuthService(database.DB, cfg)
	moderationService := services.NewModerationService(database.DB, cfg)
	eventService := services.NewEventService(database.DB, cfg, moderationService)
	pledgeService := services.NewPledgeService(database.DB, cfg, moderationService)
	statsService := services.NewStatsService(database.DB, cfg)
	reportService := services.NewReportService(database.DB, statsService, cfg)
	dashboardService := services.NewDashboardService(statsService)

	// Log and report retention
	retentionDone := make(chan struct{})
	logging.Retention{
		DB:         database.DB,
		Reports:    reportService,
		LogDays:    cfg.LogRetentionDays,
		ReportDays: cfg.ReportRetentionDays,
	}.Start(retentionDone)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, authService, routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Health:     handlers.NewHealthHandler(database.DB),
		Events:     handlers.NewEventHandler(eventService, pledgeService, dashboardService),
		Pledges:    handlers.NewPledgeHandler(pledgeService),
		Moderation: handlers.NewModerationHandler(moderationService, pledgeService),
		Reports:    handlers.NewReportHandler(reportService),
		Stats:      handlers.NewStatsHandler(statsService),
		Dashboards: handlers.NewDashboardHandler(dashboardService),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(retentionDone)
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
