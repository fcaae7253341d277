package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/habitloop/habitloop-api/internal/service"
	"github.com/habitloop/habitloop-api/internal/utils"
)

// InsightHandler serves AI-generated weekly progress insights.
type InsightHandler struct {
	service service.InsightService
	logger  zerolog.Logger
}

// NewInsightHandler constructs an insight handler.
func NewInsightHandler(svc service.InsightService, logger zerolog.Logger) *InsightHandler {
	return &InsightHandler{
		service: svc,
		logger:  logger.With().Str("component", "insight_handler").Logger(),
	}
}

// Register wires insight routes.
func (h *InsightHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/generate", h.generate)
}

func (h *InsightHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	insights, err := h.service.ListByUser(c.Context(), userIDFromContext(c), limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list insights")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list insights")
	}

	return utils.SendSuccess(c, "insights", insights)
}

func (h *InsightHandler) generate(c *fiber.Ctx) error {
	insight, err := h.service.GenerateWeekly(c.Context(), userIDFromContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to generate insight")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to generate insight")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "insight generated", insight)
}
