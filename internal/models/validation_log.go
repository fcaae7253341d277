package models

import (
	"time"

	"gorm.io/datatypes"
)

// ValidationLog is the append-only audit record for a validation attempt. The
// rule reference is nil for manual overrides. A retry is the only mutation
// path: it increments retry_count, flips success and refreshes the output
// fields.
type ValidationLog struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CheckInID        uint            `gorm:"not null;index" json:"checkin_id"`
	ValidationRuleID *uint           `json:"validation_rule_id"`
	InputDataPreview string          `gorm:"type:text" json:"input_data_preview"`
	AIResponseRaw    string          `gorm:"type:text" json:"ai_response_raw"`
	AIResponseParsed datatypes.JSONMap `json:"ai_response_parsed"`
	ConfidenceScore  *float64        `json:"confidence_score"`
	IsApproved       bool            `gorm:"default:false" json:"is_approved"`
	ProcessingTime   float64         `json:"processing_time"`
	Success          bool            `gorm:"default:false" json:"success"`
	ErrorMessage     string          `gorm:"type:text" json:"error_message"`
	RetryCount       int             `gorm:"default:0" json:"retry_count"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at"`

	CheckIn        CheckIn         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"checkin"`
	ValidationRule *ValidationRule `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"validation_rule"`
}
