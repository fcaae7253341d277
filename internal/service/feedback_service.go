package service

import (
	"context"
	"errors"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/dto"
	"github.com/habitloop/habitloop-api/internal/models"
	"github.com/habitloop/habitloop-api/internal/repository"
)

// FeedbackService records user corrections of AI validation outcomes.
type FeedbackService interface {
	Create(ctx context.Context, userID uint, req dto.FeedbackCreateRequest) (dto.FeedbackResponse, error)
	ListByUser(ctx context.Context, userID uint) ([]dto.FeedbackResponse, error)
}

type feedbackService struct {
	feedback  repository.AIFeedbackRepository
	checkins  repository.CheckInRepository
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewFeedbackService constructs the feedback service. Free-text fields are
// stripped of all markup before storage.
func NewFeedbackService(feedback repository.AIFeedbackRepository, checkins repository.CheckInRepository, logger zerolog.Logger) FeedbackService {
	return &feedbackService{
		feedback:  feedback,
		checkins:  checkins,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "feedback_service").Logger(),
	}
}

func (s *feedbackService) Create(ctx context.Context, userID uint, req dto.FeedbackCreateRequest) (dto.FeedbackResponse, error) {
	checkin, err := s.checkins.GetByID(ctx, req.CheckInID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrCheckInNotFound
		}
		return dto.FeedbackResponse{}, err
	}
	if checkin.Habit.UserID != userID {
		return dto.FeedbackResponse{}, ErrValidationForbidden
	}

	entry := models.AIFeedback{
		UserID:         userID,
		CheckInID:      checkin.ID,
		FeedbackType:   req.FeedbackType,
		Description:    s.sanitizer.Sanitize(req.Description),
		ExpectedResult: s.sanitizer.Sanitize(req.ExpectedResult),
	}
	if err := s.feedback.Create(ctx, &entry); err != nil {
		return dto.FeedbackResponse{}, err
	}

	s.logger.Info().
		Uint("checkin_id", checkin.ID).
		Str("feedback_type", entry.FeedbackType).
		Msg("ai feedback filed")

	return dto.NewFeedbackResponse(entry), nil
}

func (s *feedbackService) ListByUser(ctx context.Context, userID uint) ([]dto.FeedbackResponse, error) {
	entries, err := s.feedback.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.FeedbackResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewFeedbackResponse(entry))
	}
	return responses, nil
}
