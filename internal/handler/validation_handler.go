package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/habitloop/habitloop-api/internal/dto"
	"github.com/habitloop/habitloop-api/internal/service"
	"github.com/habitloop/habitloop-api/internal/utils"
)

// ValidationHandler exposes the validation pipeline over HTTP.
type ValidationHandler struct {
	service   service.ValidationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewValidationHandler constructs a validation handler.
func NewValidationHandler(svc service.ValidationService, validate *validator.Validate, logger zerolog.Logger) *ValidationHandler {
	return &ValidationHandler{
		service:   svc,
		validator: validate,
		logger:    logger.With().Str("component", "validation_handler").Logger(),
	}
}

// Register wires validation routes. Manual override and cache clearing are
// registered separately under the admin group.
func (h *ValidationHandler) Register(router fiber.Router) {
	router.Post("/validate", h.validate)
	router.Post("/retry/:log_id", h.retry)
	router.Get("/logs", h.listLogs)
	router.Get("/performance", h.performance)
}

// RegisterAdmin wires the privileged validation routes.
func (h *ValidationHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/manual-validation", h.manual)
	router.Post("/cache/clear", h.clearCache)
}

func (h *ValidationHandler) validate(c *fiber.Ctx) error {
	var payload dto.ValidateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	response, err := h.service.ValidateCheckIn(c.Context(), payload.CheckInID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "validation completed", response)
}

func (h *ValidationHandler) retry(c *fiber.Ctx) error {
	logID, err := parseParamUint(c, "log_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid log id")
	}

	response, err := h.service.Retry(c.Context(), logID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "retry completed", response)
}

func (h *ValidationHandler) listLogs(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	logs, err := h.service.ListLogs(c.Context(), userIDFromContext(c), limit, offset)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "validation logs", logs)
}

func (h *ValidationHandler) performance(c *fiber.Ctx) error {
	summary, err := h.service.PerformanceSummary(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "performance summary", summary)
}

func (h *ValidationHandler) manual(c *fiber.Ctx) error {
	var payload dto.ManualValidationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	response, err := h.service.ManualOverride(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "manual validation recorded", response)
}

func (h *ValidationHandler) clearCache(c *fiber.Ctx) error {
	var payload dto.CacheClearRequest
	if err := c.BodyParser(&payload); err != nil && len(c.Body()) > 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	cleared, err := h.service.ClearCache(c.Context(), payload.OlderThanDays)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "validation cache cleared", dto.CacheClearResponse{ClearedCount: cleared})
}

func (h *ValidationHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	case errors.Is(err, service.ErrCheckInNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "check-in not found")
	case errors.Is(err, service.ErrValidationLogNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "validation log not found")
	case errors.Is(err, service.ErrValidationForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("validation request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "validation request failed")
	}
}
