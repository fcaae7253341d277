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

// FeedbackHandler accepts corrections of AI validation outcomes.
type FeedbackHandler struct {
	service   service.FeedbackService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewFeedbackHandler constructs a feedback handler.
func NewFeedbackHandler(svc service.FeedbackService, validate *validator.Validate, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service:   svc,
		validator: validate,
		logger:    logger.With().Str("component", "feedback_handler").Logger(),
	}
}

// Register wires feedback routes.
func (h *FeedbackHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
}

func (h *FeedbackHandler) create(c *fiber.Ctx) error {
	var payload dto.FeedbackCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Create(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckInNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "check-in not found")
		case errors.Is(err, service.ErrValidationForbidden):
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to file feedback")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to file feedback")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "feedback filed", response)
}

func (h *FeedbackHandler) list(c *fiber.Ctx) error {
	responses, err := h.service.ListByUser(c.Context(), userIDFromContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list feedback")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list feedback")
	}

	return utils.SendSuccess(c, "feedback", responses)
}
