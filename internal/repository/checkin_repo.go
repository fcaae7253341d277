package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/models"
)

// CheckInRepository exposes persistence helpers for daily check-ins.
type CheckInRepository interface {
	Create(ctx context.Context, checkin *models.CheckIn) error
	Update(ctx context.Context, checkin *models.CheckIn) error
	GetByID(ctx context.Context, id uint) (models.CheckIn, error)
	ListApprovedSince(ctx context.Context, userID uint, since time.Time) ([]models.CheckIn, error)
}

// NewCheckInRepository constructs a check-in repository.
func NewCheckInRepository(db *gorm.DB) CheckInRepository {
	return &checkInRepository{db: db}
}

type checkInRepository struct {
	db *gorm.DB
}

func (r *checkInRepository) Create(ctx context.Context, checkin *models.CheckIn) error {
	return r.db.WithContext(ctx).Create(checkin).Error
}

func (r *checkInRepository) Update(ctx context.Context, checkin *models.CheckIn) error {
	return r.db.WithContext(ctx).Save(checkin).Error
}

func (r *checkInRepository) GetByID(ctx context.Context, id uint) (models.CheckIn, error) {
	var checkin models.CheckIn
	err := r.db.WithContext(ctx).
		Preload("Habit").
		First(&checkin, id).Error
	if err != nil {
		return models.CheckIn{}, err
	}
	return checkin, nil
}

func (r *checkInRepository) ListApprovedSince(ctx context.Context, userID uint, since time.Time) ([]models.CheckIn, error) {
	var checkins []models.CheckIn
	err := r.db.WithContext(ctx).
		Preload("Habit").
		Joins("JOIN habits ON habits.id = check_ins.habit_id").
		Where("habits.user_id = ? AND check_ins.is_approved = ? AND check_ins.created_at >= ?", userID, true, since).
		Order("check_ins.created_at DESC").
		Find(&checkins).Error
	if err != nil {
		return nil, err
	}
	return checkins, nil
}
