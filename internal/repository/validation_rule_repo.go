package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/models"
)

// ValidationRuleRepository resolves the rule applied to a validation run.
type ValidationRuleRepository interface {
	ActiveByType(ctx context.Context, validationType string) (models.ValidationRule, error)
}

// NewValidationRuleRepository constructs a validation rule repository.
func NewValidationRuleRepository(db *gorm.DB) ValidationRuleRepository {
	return &validationRuleRepository{db: db}
}

type validationRuleRepository struct {
	db *gorm.DB
}

// ActiveByType returns the active rule for the validation type. When several
// rules are active for the same type, the most recently updated one wins so
// resolution stays deterministic.
func (r *validationRuleRepository) ActiveByType(ctx context.Context, validationType string) (models.ValidationRule, error) {
	var rule models.ValidationRule
	err := r.db.WithContext(ctx).
		Where("validation_type = ? AND is_active = ?", validationType, true).
		Order("updated_at DESC").
		First(&rule).Error
	if err != nil {
		return models.ValidationRule{}, err
	}
	return rule, nil
}
