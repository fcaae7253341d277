package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProgressInsight stores AI-generated weekly insights about a user's
// consistency. Generation shares the model boundary with check-in validation
// but is otherwise independent of the engine.
type ProgressInsight struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	UserID            uint              `gorm:"not null;index" json:"user_id"`
	InsightType       string            `gorm:"size:32;not null" json:"insight_type"`
	Title             string            `gorm:"size:255" json:"title"`
	Description       string            `gorm:"type:text" json:"description"`
	Data              datatypes.JSONMap `json:"data"`
	IsActionable      bool              `gorm:"default:false" json:"is_actionable"`
	ActionTitle       string            `gorm:"size:255" json:"action_title"`
	ActionDescription string            `gorm:"type:text" json:"action_description"`
	CreatedAt         time.Time         `json:"created_at"`
}
