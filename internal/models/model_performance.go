package models

import "time"

// ModelPerformance aggregates validation outcomes per rule per calendar day.
// Rows are created lazily on the first log entry for a rule on a date and
// mutated in place for the rest of that day. average_confidence is an
// incremental mean over successful requests only; average_processing_time
// covers all requests. The false positive/negative counters are reconciled
// from user feedback outside the engine.
type ModelPerformance struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ValidationRuleID uint      `gorm:"not null;uniqueIndex:idx_performance_rule_date" json:"validation_rule_id"`
	Date             time.Time `gorm:"type:date;not null;uniqueIndex:idx_performance_rule_date" json:"date"`

	TotalRequests         int     `gorm:"default:0" json:"total_requests"`
	SuccessfulRequests    int     `gorm:"default:0" json:"successful_requests"`
	FailedRequests        int     `gorm:"default:0" json:"failed_requests"`
	AverageConfidence     float64 `gorm:"default:0" json:"average_confidence"`
	AverageProcessingTime float64 `gorm:"default:0" json:"average_processing_time"`

	FalsePositives    int     `gorm:"default:0" json:"false_positives"`
	FalseNegatives    int     `gorm:"default:0" json:"false_negatives"`
	UserAccuracyScore float64 `gorm:"default:0" json:"user_accuracy_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ValidationRule ValidationRule `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"validation_rule"`
}
