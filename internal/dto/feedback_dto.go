package dto

import (
	"time"

	"github.com/habitloop/habitloop-api/internal/models"
)

// FeedbackCreateRequest files a correction against an AI validation outcome.
type FeedbackCreateRequest struct {
	CheckInID      uint   `json:"checkin_id" validate:"required"`
	FeedbackType   string `json:"feedback_type" validate:"required,oneof=false_positive false_negative accuracy suggestion bug"`
	Description    string `json:"description" validate:"required"`
	ExpectedResult string `json:"expected_result"`
}

// FeedbackResponse is the API view of a filed correction.
type FeedbackResponse struct {
	ID             uint      `json:"id"`
	CheckInID      uint      `json:"checkin_id"`
	FeedbackType   string    `json:"feedback_type"`
	Description    string    `json:"description"`
	ExpectedResult string    `json:"expected_result"`
	IsResolved     bool      `json:"is_resolved"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewFeedbackResponse maps a feedback model onto its response shape.
func NewFeedbackResponse(feedback models.AIFeedback) FeedbackResponse {
	return FeedbackResponse{
		ID:             feedback.ID,
		CheckInID:      feedback.CheckInID,
		FeedbackType:   feedback.FeedbackType,
		Description:    feedback.Description,
		ExpectedResult: feedback.ExpectedResult,
		IsResolved:     feedback.IsResolved,
		CreatedAt:      feedback.CreatedAt,
	}
}
