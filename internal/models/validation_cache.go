package models

import (
	"time"

	"gorm.io/datatypes"
)

// ValidationCache stores high-confidence validation outcomes keyed by a
// content fingerprint so repeat submissions skip the model call. One row per
// hash; usage_count is at least one and grows monotonically on each hit.
type ValidationCache struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	InputHash        string            `gorm:"size:64;not null;uniqueIndex" json:"input_hash"`
	ValidationRuleID uint              `gorm:"not null" json:"validation_rule_id"`
	InputDataPreview string            `gorm:"type:text" json:"input_data_preview"`
	AIResponse       datatypes.JSONMap `json:"ai_response"`
	ConfidenceScore  float64           `json:"confidence_score"`
	IsApproved       bool              `json:"is_approved"`
	UsageCount       int               `gorm:"default:1" json:"usage_count"`
	LastUsed         time.Time         `gorm:"index" json:"last_used"`
	CreatedAt        time.Time         `json:"created_at"`

	ValidationRule ValidationRule `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"validation_rule"`
}
