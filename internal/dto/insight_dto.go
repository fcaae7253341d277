package dto

import (
	"time"

	"github.com/habitloop/habitloop-api/internal/models"
)

// InsightResponse is the API view of a generated weekly insight.
type InsightResponse struct {
	ID                uint                   `json:"id"`
	InsightType       string                 `json:"insight_type"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	Data              map[string]interface{} `json:"data"`
	IsActionable      bool                   `json:"is_actionable"`
	ActionTitle       string                 `json:"action_title,omitempty"`
	ActionDescription string                 `json:"action_description,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
}

// NewInsightResponse maps an insight model onto its response shape.
func NewInsightResponse(insight models.ProgressInsight) InsightResponse {
	return InsightResponse{
		ID:                insight.ID,
		InsightType:       insight.InsightType,
		Title:             insight.Title,
		Description:       insight.Description,
		Data:              map[string]interface{}(insight.Data),
		IsActionable:      insight.IsActionable,
		ActionTitle:       insight.ActionTitle,
		ActionDescription: insight.ActionDescription,
		CreatedAt:         insight.CreatedAt,
	}
}
