package models

import "time"

// ValidationRule configures how check-ins of a given validation type are
// assessed. The prompt template carries a single {validation_prompt}
// placeholder substituted with the habit's own prompt text. Rules are
// immutable during a validation run.
//
// The schema does not enforce a single active rule per type; the resolver
// breaks ties deterministically by most recent update.
type ValidationRule struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Name                string    `gorm:"size:100;not null" json:"name"`
	ValidationType      string    `gorm:"size:32;not null;index" json:"validation_type"`
	PromptTemplate      string    `gorm:"type:text;not null" json:"prompt_template"`
	ConfidenceThreshold float64   `gorm:"default:0.85" json:"confidence_threshold"`
	MaxProcessingTime   int       `gorm:"default:15" json:"max_processing_time"`
	IsActive            bool      `gorm:"default:true" json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
