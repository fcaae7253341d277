package models

import "time"

// Validation methods a habit can require for its daily check-ins.
const (
	ValidationTypePhoto           = "photo"
	ValidationTypeAudio           = "audio"
	ValidationTypeText            = "text"
	ValidationTypeScreenRecording = "screen_recording"
	ValidationTypeGeneral         = "general"
)

// Habit is the tracked behaviour a user checks in against. Goal and streak
// management live outside this service; only the fields the validation
// pipeline reads are modelled here.
type Habit struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	ValidationMethod string    `gorm:"size:32;not null" json:"validation_method"`
	ValidationPrompt string    `gorm:"type:text" json:"validation_prompt"`
	IsActive         bool      `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
