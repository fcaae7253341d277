package handler

import (
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/habitloop/habitloop-api/internal/dto"
	"github.com/habitloop/habitloop-api/internal/service"
	"github.com/habitloop/habitloop-api/internal/utils"
)

const maxPhotoProofBytes = 10 << 20

// CheckInHandler accepts daily completion evidence.
type CheckInHandler struct {
	service   service.CheckInService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCheckInHandler constructs a check-in handler.
func NewCheckInHandler(svc service.CheckInService, validate *validator.Validate, logger zerolog.Logger) *CheckInHandler {
	return &CheckInHandler{
		service:   svc,
		validator: validate,
		logger:    logger.With().Str("component", "checkin_handler").Logger(),
	}
}

// Register wires check-in routes.
func (h *CheckInHandler) Register(router fiber.Router) {
	router.Post("", h.submit)
	router.Get("/:id", h.get)
}

func (h *CheckInHandler) submit(c *fiber.Ctx) error {
	var payload dto.CheckInSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	photoName, photo, err := h.photoFromForm(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid photo upload")
	}

	response, err := h.service.Submit(c.Context(), userIDFromContext(c), payload, photoName, photo)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "check-in submitted", response)
}

func (h *CheckInHandler) get(c *fiber.Ctx) error {
	checkinID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid check-in id")
	}

	response, err := h.service.GetByID(c.Context(), checkinID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "check-in", response)
}

func (h *CheckInHandler) photoFromForm(c *fiber.Ctx) (string, []byte, error) {
	file, err := c.FormFile("photo_proof")
	if err != nil {
		// No multipart photo on this request.
		return "", nil, nil
	}
	if file.Size > maxPhotoProofBytes {
		return "", nil, errors.New("photo proof too large")
	}

	handle, err := file.Open()
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = handle.Close() }()

	data, err := io.ReadAll(io.LimitReader(handle, maxPhotoProofBytes+1))
	if err != nil {
		return "", nil, err
	}
	if len(data) > maxPhotoProofBytes {
		return "", nil, errors.New("photo proof too large")
	}

	return file.Filename, data, nil
}

func (h *CheckInHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "habit not found")
	case errors.Is(err, service.ErrCheckInNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "check-in not found")
	case errors.Is(err, service.ErrCheckInExists):
		return utils.SendError(c, fiber.StatusConflict, "check-in already exists for today")
	case errors.Is(err, service.ErrValidationForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("check-in request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "check-in request failed")
	}
}
