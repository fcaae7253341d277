package models

import "time"

// CheckIn records a single day's completion evidence for a habit. Exactly one
// proof field is expected to be populated, matching the habit's validation
// method, or the self-report flag is set. The AI output fields are mutated
// only by the validation engine and the manual-override path.
type CheckIn struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	HabitID uint      `gorm:"not null;uniqueIndex:idx_checkin_habit_date" json:"habit_id"`
	Date    time.Time `gorm:"type:date;not null;uniqueIndex:idx_checkin_habit_date" json:"date"`

	PhotoProof               []byte `gorm:"type:bytea" json:"-"`
	PhotoProofName           string `gorm:"size:255" json:"photo_proof_name"`
	PhotoProofURL            string `gorm:"size:512" json:"photo_proof_url"`
	AudioProofName           string `gorm:"size:255" json:"audio_proof_name"`
	TextProof                string `gorm:"type:text" json:"text_proof"`
	ScreenRecordingProofName string `gorm:"size:255" json:"screen_recording_proof_name"`

	IsSelfReport          bool   `gorm:"default:false" json:"is_self_report"`
	SelfReportDescription string `gorm:"type:text" json:"self_report_description"`

	AIConfidence *float64   `json:"ai_confidence"`
	AIFeedback   string     `gorm:"type:text" json:"ai_feedback"`
	IsApproved   bool       `gorm:"default:false" json:"is_approved"`
	ValidatedAt  *time.Time `json:"validated_at"`

	CompletedAt      *time.Time `json:"completed_at"`
	TimeSpentMinutes *int       `json:"time_spent_minutes"`
	Notes            string     `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Habit Habit `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"habit"`
}
