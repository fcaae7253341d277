package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/models"
)

// AIFeedbackRepository persists user corrections of AI validation outcomes.
type AIFeedbackRepository interface {
	Create(ctx context.Context, feedback *models.AIFeedback) error
	ListByUser(ctx context.Context, userID uint) ([]models.AIFeedback, error)
}

// NewAIFeedbackRepository constructs an AI feedback repository.
func NewAIFeedbackRepository(db *gorm.DB) AIFeedbackRepository {
	return &aiFeedbackRepository{db: db}
}

type aiFeedbackRepository struct {
	db *gorm.DB
}

func (r *aiFeedbackRepository) Create(ctx context.Context, feedback *models.AIFeedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}

func (r *aiFeedbackRepository) ListByUser(ctx context.Context, userID uint) ([]models.AIFeedback, error) {
	var feedback []models.AIFeedback
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&feedback).Error
	if err != nil {
		return nil, err
	}
	return feedback, nil
}
