package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/identity"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/models"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/services"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/store"
	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

type GradingHandler struct {
	gradingService *services.GradingService
}

func NewGradingHandler(gradingService *services.GradingService) *GradingHandler {
	return &GradingHandler{gradingService: gradingService}
}

func (h *GradingHandler) Grade(c *fiber.Ctx) error {
	var req contract.GradeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(bodyError(err))
	}
	if verr := req.Validate(); verr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(verr)
	}

	report, err := h.gradingService.Grade(c.UserContext(), identity.Owner(c), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidImage) {
			return c.Status(fiber.StatusBadRequest).JSON(contract.ValidationError{
				Error: true, Message: services.ErrInvalidImage.Error(), Field: "image",
			})
		}
		h.serverError(c, "grade", err)
		return c.Status(fiber.StatusInternalServerError).JSON(contract.ErrorResponse{
			Error: true, Message: "Internal server error during grading",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(report.ToResponse())
}

func (h *GradingHandler) List(c *fiber.Ctx) error {
	reports, err := h.gradingService.List(c.UserContext(), identity.Owner(c))
	if err != nil {
		h.serverError(c, "list", err)
		return c.Status(fiber.StatusInternalServerError).JSON(contract.ErrorResponse{
			Error: true, Message: "Failed to list reports",
		})
	}
	return c.JSON(models.ToResponses(reports))
}

func (h *GradingHandler) Get(c *fiber.Ctx) error {
	// Non-numeric ids cannot exist, so they are reported as not found.
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return notFound(c)
	}

	report, err := h.gradingService.Get(c.UserContext(), uint(id), identity.Owner(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c)
		}
		h.serverError(c, "get", err)
		return c.Status(fiber.StatusInternalServerError).JSON(contract.ErrorResponse{
			Error: true, Message: "Failed to load report",
		})
	}
	return c.JSON(report.ToResponse())
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(contract.ErrorResponse{
		Error: true, Message: "Report not found",
	})
}

// serverError logs at ERROR, which also lands in the system log table, and
// reports to Sentry when it is enabled.
func (h *GradingHandler) serverError(c *fiber.Ctx, action string, err error) {
	slog.Error("grading request failed",
		"action", action,
		"request_id", requestID(c),
		"user_id", identity.GetUserID(c),
		"error", err.Error(),
	)
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("action", action)
			hub.CaptureException(err)
		})
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// bodyError names the offending field when the JSON decoder can tell which
// one had the wrong type.
func bodyError(err error) contract.ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return contract.ValidationError{
			Error:   true,
			Message: typeErr.Field + " must be a " + typeErr.Type.Kind().String(),
			Field:   typeErr.Field,
		}
	}
	return contract.ValidationError{Error: true, Message: "Invalid request body"}
}
