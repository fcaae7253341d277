package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/models"
)

// ProgressInsightRepository persists AI-generated weekly insights.
type ProgressInsightRepository interface {
	Create(ctx context.Context, insight *models.ProgressInsight) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.ProgressInsight, error)
}

// NewProgressInsightRepository constructs a progress insight repository.
func NewProgressInsightRepository(db *gorm.DB) ProgressInsightRepository {
	return &progressInsightRepository{db: db}
}

type progressInsightRepository struct {
	db *gorm.DB
}

func (r *progressInsightRepository) Create(ctx context.Context, insight *models.ProgressInsight) error {
	return r.db.WithContext(ctx).Create(insight).Error
}

func (r *progressInsightRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.ProgressInsight, error) {
	if limit <= 0 {
		limit = 20
	}

	var insights []models.ProgressInsight
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&insights).Error
	if err != nil {
		return nil, err
	}
	return insights, nil
}
