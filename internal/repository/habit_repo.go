package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/models"
)

// HabitRepository exposes the habit lookups the validation pipeline needs.
type HabitRepository interface {
	GetByID(ctx context.Context, id uint) (models.Habit, error)
	ListActiveByUser(ctx context.Context, userID uint) ([]models.Habit, error)
	ListUserIDsWithActiveHabits(ctx context.Context) ([]uint, error)
}

// NewHabitRepository constructs a habit repository.
func NewHabitRepository(db *gorm.DB) HabitRepository {
	return &habitRepository{db: db}
}

type habitRepository struct {
	db *gorm.DB
}

func (r *habitRepository) GetByID(ctx context.Context, id uint) (models.Habit, error) {
	var habit models.Habit
	if err := r.db.WithContext(ctx).First(&habit, id).Error; err != nil {
		return models.Habit{}, err
	}
	return habit, nil
}

func (r *habitRepository) ListActiveByUser(ctx context.Context, userID uint) ([]models.Habit, error) {
	var habits []models.Habit
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at ASC").
		Find(&habits).Error
	if err != nil {
		return nil, err
	}
	return habits, nil
}

// ListUserIDsWithActiveHabits feeds the weekly insight sweep.
func (r *habitRepository) ListUserIDsWithActiveHabits(ctx context.Context) ([]uint, error) {
	var userIDs []uint
	err := r.db.WithContext(ctx).
		Model(&models.Habit{}).
		Where("is_active = ?", true).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}
