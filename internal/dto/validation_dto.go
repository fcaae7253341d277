package dto

import (
	"time"

	"github.com/habitloop/habitloop-api/internal/models"
)

// ValidateRequest asks for AI validation of a persisted check-in.
type ValidateRequest struct {
	CheckInID uint `json:"checkin_id" validate:"required"`
}

// ValidationResponse is the outcome of a validation attempt.
type ValidationResponse struct {
	Success    bool    `json:"success"`
	IsApproved bool    `json:"is_approved"`
	Confidence float64 `json:"confidence"`
	Feedback   string  `json:"feedback"`
	FromCache  bool    `json:"from_cache"`
	Error      string  `json:"error,omitempty"`
}

// RetryResponse reports the outcome of re-running a failed validation.
type RetryResponse struct {
	Success    bool    `json:"success"`
	IsApproved bool    `json:"is_approved"`
	Confidence float64 `json:"confidence"`
	RetryCount int     `json:"retry_count"`
}

// ManualValidationRequest overrides the AI verdict for a check-in.
type ManualValidationRequest struct {
	CheckInID  uint   `json:"checkin_id" validate:"required"`
	IsApproved bool   `json:"is_approved"`
	AdminNotes string `json:"admin_notes"`
}

// CacheClearRequest optionally narrows the eviction window.
type CacheClearRequest struct {
	OlderThanDays int `json:"older_than_days" validate:"omitempty,min=1"`
}

// CacheClearResponse reports how many cache rows were evicted.
type CacheClearResponse struct {
	ClearedCount int64 `json:"cleared_count"`
}

// ValidationLogResponse is the user-facing view of an audit record.
type ValidationLogResponse struct {
	ID             uint       `json:"id"`
	CheckInID      uint       `json:"checkin_id"`
	HabitTitle     string     `json:"habit_title"`
	RuleName       string     `json:"rule_name,omitempty"`
	Confidence     *float64   `json:"confidence"`
	IsApproved     bool       `json:"is_approved"`
	Success        bool       `json:"success"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	RetryCount     int        `json:"retry_count"`
	ProcessingTime float64    `json:"processing_time"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}

// NewValidationLogResponse maps a log model onto its response shape.
func NewValidationLogResponse(log models.ValidationLog) ValidationLogResponse {
	response := ValidationLogResponse{
		ID:             log.ID,
		CheckInID:      log.CheckInID,
		HabitTitle:     log.CheckIn.Habit.Title,
		Confidence:     log.ConfidenceScore,
		IsApproved:     log.IsApproved,
		Success:        log.Success,
		ErrorMessage:   log.ErrorMessage,
		RetryCount:     log.RetryCount,
		ProcessingTime: log.ProcessingTime,
		CreatedAt:      log.CreatedAt,
		CompletedAt:    log.CompletedAt,
	}
	if log.ValidationRule != nil {
		response.RuleName = log.ValidationRule.Name
	}
	return response
}

// UserPerformanceMetrics summarises a user's validation history.
type UserPerformanceMetrics struct {
	TotalValidations int64   `json:"total_validations"`
	SuccessRate      float64 `json:"success_rate"`
	AverageConfidence float64 `json:"average_confidence"`
	TodayValidations int64   `json:"today_validations"`
	TodaySuccessRate float64 `json:"today_success_rate"`
}

// PerformanceSummaryResponse wraps the user metrics payload.
type PerformanceSummaryResponse struct {
	UserMetrics UserPerformanceMetrics `json:"user_metrics"`
}
