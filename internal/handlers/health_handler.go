package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/services"
	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

type HealthHandler struct {
	gradingService *services.GradingService
}

func NewHealthHandler(gradingService *services.GradingService) *HealthHandler {
	return &HealthHandler{gradingService: gradingService}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus, aiMode := h.gradingService.Health(c.UserContext())

	status := "ok"
	code := fiber.StatusOK
	if dbStatus != "ok" {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(contract.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		AI:        aiMode,
	})
}
