package models

import "time"

// Feedback types a user can file against an AI validation outcome.
const (
	FeedbackTypeFalsePositive = "false_positive"
	FeedbackTypeFalseNegative = "false_negative"
	FeedbackTypeAccuracy      = "accuracy"
	FeedbackTypeSuggestion    = "suggestion"
	FeedbackTypeBug           = "bug"
)

// AIFeedback is a user-submitted correction tied to a check-in. The engine
// does not consume it directly; it is the source of truth for the false
// positive/negative counters on ModelPerformance.
type AIFeedback struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	CheckInID      uint      `gorm:"not null;index" json:"checkin_id"`
	FeedbackType   string    `gorm:"size:32;not null" json:"feedback_type"`
	Description    string    `gorm:"type:text" json:"description"`
	ExpectedResult string    `gorm:"type:text" json:"expected_result"`
	IsResolved     bool      `gorm:"default:false" json:"is_resolved"`
	AdminNotes     string    `gorm:"type:text" json:"admin_notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	CheckIn CheckIn `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"checkin"`
}
