package dto

import (
	"time"

	"github.com/habitloop/habitloop-api/internal/models"
)

// CheckInSubmitRequest carries a day's completion evidence for a habit. The
// photo payload arrives as a multipart file and is bound separately.
type CheckInSubmitRequest struct {
	HabitID               uint   `json:"habit_id" form:"habit_id" validate:"required"`
	TextProof             string `json:"text_proof" form:"text_proof"`
	AudioProofName        string `json:"audio_proof_name" form:"audio_proof_name"`
	ScreenRecordingName   string `json:"screen_recording_name" form:"screen_recording_name"`
	IsSelfReport          bool   `json:"is_self_report" form:"is_self_report"`
	SelfReportDescription string `json:"self_report_description" form:"self_report_description"`
	Notes                 string `json:"notes" form:"notes"`
}

// CheckInResponse is the API view of a check-in.
type CheckInResponse struct {
	ID            uint       `json:"id"`
	HabitID       uint       `json:"habit_id"`
	HabitTitle    string     `json:"habit_title"`
	Date          time.Time  `json:"date"`
	PhotoProofURL string     `json:"photo_proof_url,omitempty"`
	TextProof     string     `json:"text_proof,omitempty"`
	IsSelfReport  bool       `json:"is_self_report"`
	AIConfidence  *float64   `json:"ai_confidence"`
	AIFeedback    string     `json:"ai_feedback,omitempty"`
	IsApproved    bool       `json:"is_approved"`
	ValidatedAt   *time.Time `json:"validated_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewCheckInResponse maps a check-in model onto its response shape.
func NewCheckInResponse(checkin models.CheckIn) CheckInResponse {
	return CheckInResponse{
		ID:            checkin.ID,
		HabitID:       checkin.HabitID,
		HabitTitle:    checkin.Habit.Title,
		Date:          checkin.Date,
		PhotoProofURL: checkin.PhotoProofURL,
		TextProof:     checkin.TextProof,
		IsSelfReport:  checkin.IsSelfReport,
		AIConfidence:  checkin.AIConfidence,
		AIFeedback:    checkin.AIFeedback,
		IsApproved:    checkin.IsApproved,
		ValidatedAt:   checkin.ValidatedAt,
		CreatedAt:     checkin.CreatedAt,
	}
}
