package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/models"
)

// ModelPerformanceRepository maintains the per-rule per-day rolling metrics.
type ModelPerformanceRepository interface {
	Record(ctx context.Context, ruleID uint, day time.Time, success bool, confidence *float64, processingTime float64) error
	ForRuleOn(ctx context.Context, ruleID uint, day time.Time) (models.ModelPerformance, error)
}

// NewModelPerformanceRepository constructs a model performance repository.
func NewModelPerformanceRepository(db *gorm.DB) ModelPerformanceRepository {
	return &modelPerformanceRepository{db: db}
}

type modelPerformanceRepository struct {
	db *gorm.DB
}

// Record folds one validation attempt into the (rule, day) row, creating it
// with zeroed counters on first use. The counter and incremental-mean update
// is a single UPDATE whose right-hand sides read the pre-update row, so two
// attempts completing in the same instant cannot lose each other's update.
// The confidence mean covers successful requests only; the processing-time
// mean covers every attempt.
func (r *modelPerformanceRepository) Record(ctx context.Context, ruleID uint, day time.Time, success bool, confidence *float64, processingTime float64) error {
	date := truncateToDate(day)

	perf := models.ModelPerformance{ValidationRuleID: ruleID, Date: date}
	err := r.db.WithContext(ctx).
		Where("validation_rule_id = ? AND date = ?", ruleID, date).
		FirstOrCreate(&perf).Error
	if err != nil {
		// A concurrent attempt may have created the row between the lookup
		// and the insert; the unique (rule, date) index rejects ours.
		var existing models.ModelPerformance
		lookupErr := r.db.WithContext(ctx).
			Where("validation_rule_id = ? AND date = ?", ruleID, date).
			First(&existing).Error
		if lookupErr != nil {
			return errors.Join(err, lookupErr)
		}
	}

	updates := map[string]interface{}{
		"total_requests":          gorm.Expr("total_requests + 1"),
		"average_processing_time": gorm.Expr("(average_processing_time * total_requests + ?) / (total_requests + 1)", processingTime),
		"updated_at":              time.Now().UTC(),
	}

	if success {
		updates["successful_requests"] = gorm.Expr("successful_requests + 1")
		if confidence != nil {
			updates["average_confidence"] = gorm.Expr("(average_confidence * successful_requests + ?) / (successful_requests + 1)", *confidence)
		}
	} else {
		updates["failed_requests"] = gorm.Expr("failed_requests + 1")
	}

	return r.db.WithContext(ctx).
		Model(&models.ModelPerformance{}).
		Where("validation_rule_id = ? AND date = ?", ruleID, date).
		Updates(updates).Error
}

func (r *modelPerformanceRepository) ForRuleOn(ctx context.Context, ruleID uint, day time.Time) (models.ModelPerformance, error) {
	var perf models.ModelPerformance
	err := r.db.WithContext(ctx).
		Where("validation_rule_id = ? AND date = ?", ruleID, truncateToDate(day)).
		First(&perf).Error
	if err != nil {
		return models.ModelPerformance{}, err
	}
	return perf, nil
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
