package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

// Setup registers every route. Paths come from the contract route table so
// the server and pkg/client cannot drift apart.
func Setup(
	app *fiber.App,
	auth fiber.Handler,
	gradingHandler *handlers.GradingHandler,
	healthHandler *handlers.HealthHandler,
) {
	// Operational endpoints (no auth)
	app.Get("/metrics", metrics.Handler())
	app.Add(contract.Routes.Health.Method, contract.Routes.Health.Path, healthHandler.Check)

	// Grading API (auth per AUTH_MODE). Middleware is attached per route so
	// it never runs for the public endpoints above.
	app.Add(contract.Routes.Grade.Method, contract.Routes.Grade.Path, auth, gradingHandler.Grade)
	app.Add(contract.Routes.List.Method, contract.Routes.List.Path, auth, gradingHandler.List)
	app.Add(contract.Routes.Get.Method, contract.Routes.Get.Path, auth, gradingHandler.Get)
}
