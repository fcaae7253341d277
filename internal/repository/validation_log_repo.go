package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/models"
)

// UserValidationStats aggregates a user's validation history for the
// performance endpoint.
type UserValidationStats struct {
	TotalValidations      int64
	SuccessfulValidations int64
	AverageConfidence     float64
	TodayValidations      int64
	TodaySuccessful       int64
}

// ValidationLogRepository exposes persistence helpers for validation logs.
type ValidationLogRepository interface {
	Create(ctx context.Context, log *models.ValidationLog) error
	Update(ctx context.Context, log *models.ValidationLog) error
	GetByID(ctx context.Context, id uint) (models.ValidationLog, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.ValidationLog, error)
	UserStats(ctx context.Context, userID uint, now time.Time) (UserValidationStats, error)
}

// NewValidationLogRepository constructs a validation log repository.
func NewValidationLogRepository(db *gorm.DB) ValidationLogRepository {
	return &validationLogRepository{db: db}
}

type validationLogRepository struct {
	db *gorm.DB
}

func (r *validationLogRepository) Create(ctx context.Context, log *models.ValidationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *validationLogRepository) Update(ctx context.Context, log *models.ValidationLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

func (r *validationLogRepository) GetByID(ctx context.Context, id uint) (models.ValidationLog, error) {
	var log models.ValidationLog
	err := r.db.WithContext(ctx).
		Preload("CheckIn").
		Preload("CheckIn.Habit").
		Preload("ValidationRule").
		First(&log, id).Error
	if err != nil {
		return models.ValidationLog{}, err
	}
	return log, nil
}

func (r *validationLogRepository) userScope(ctx context.Context, userID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.ValidationLog{}).
		Joins("JOIN check_ins ON check_ins.id = validation_logs.check_in_id").
		Joins("JOIN habits ON habits.id = check_ins.habit_id").
		Where("habits.user_id = ?", userID)
}

func (r *validationLogRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.ValidationLog, error) {
	if limit <= 0 {
		limit = 50
	}

	var logs []models.ValidationLog
	err := r.userScope(ctx, userID).
		Preload("CheckIn").
		Preload("CheckIn.Habit").
		Preload("ValidationRule").
		Order("validation_logs.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *validationLogRepository) UserStats(ctx context.Context, userID uint, now time.Time) (UserValidationStats, error) {
	stats := UserValidationStats{}

	if err := r.userScope(ctx, userID).Count(&stats.TotalValidations).Error; err != nil {
		return UserValidationStats{}, err
	}
	if err := r.userScope(ctx, userID).Where("validation_logs.success = ?", true).Count(&stats.SuccessfulValidations).Error; err != nil {
		return UserValidationStats{}, err
	}

	var avg *float64
	if err := r.userScope(ctx, userID).
		Select("AVG(validation_logs.confidence_score)").
		Scan(&avg).Error; err != nil {
		return UserValidationStats{}, err
	}
	if avg != nil {
		stats.AverageConfidence = *avg
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := r.userScope(ctx, userID).Where("validation_logs.created_at >= ?", startOfDay).Count(&stats.TodayValidations).Error; err != nil {
		return UserValidationStats{}, err
	}
	if err := r.userScope(ctx, userID).
		Where("validation_logs.created_at >= ? AND validation_logs.success = ?", startOfDay, true).
		Count(&stats.TodaySuccessful).Error; err != nil {
		return UserValidationStats{}, err
	}

	return stats, nil
}
