// Package server assembles the Fiber application: global middleware, error
// handling and routes.
package server

import (
	"errors"
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/config"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/routes"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/services"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/store"
	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

type Dependencies struct {
	Store  store.ReportStore
	Grader services.Grader
	// Verifier is required when cfg.AuthMode is oidc.
	Verifier middleware.TokenVerifier
	// Sentry enables the Sentry middleware; sentry.Init must already have run.
	Sentry bool
	// AccessLog enables the per-request log line.
	AccessLog bool
}

func New(cfg *config.Config, deps Dependencies) *fiber.App {
	bodyLimitMB := cfg.BodyLimitMB
	if bodyLimitMB <= 0 {
		bodyLimitMB = 15
	}

	app := fiber.New(fiber.Config{
		AppName:      "produce-grader",
		BodyLimit:    bodyLimitMB * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	if deps.Sentry {
		app.Use(sentryfiber.New(sentryfiber.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}

	app.Use(recover.New())
	app.Use(requestid.New())
	if deps.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
		}))
	}
	app.Use(metrics.Middleware())
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	gradingService := services.NewGradingService(deps.Store, deps.Grader)
	routes.Setup(app,
		middleware.Auth(cfg, deps.Verifier),
		handlers.NewGradingHandler(gradingService),
		handlers.NewHealthHandler(gradingService),
	)

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(contract.ErrorResponse{
		Error:   true,
		Message: message,
	})
}
