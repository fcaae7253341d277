package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/models"
)

// ValidationCacheRepository exposes the content-addressed validation cache.
type ValidationCacheRepository interface {
	Hit(ctx context.Context, inputHash string) (models.ValidationCache, error)
	Store(ctx context.Context, entry *models.ValidationCache) error
	Evict(ctx context.Context, olderThan time.Time) (int64, error)
}

// NewValidationCacheRepository constructs a validation cache repository.
func NewValidationCacheRepository(db *gorm.DB) ValidationCacheRepository {
	return &validationCacheRepository{db: db}
}

type validationCacheRepository struct {
	db *gorm.DB
}

// Hit records a cache hit and returns the entry. The usage counter increment
// and last_used refresh happen in a single UPDATE scoped by the hash, so
// concurrent hits for the same fingerprint cannot lose updates. A miss is
// reported as gorm.ErrRecordNotFound.
func (r *validationCacheRepository) Hit(ctx context.Context, inputHash string) (models.ValidationCache, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ValidationCache{}).
		Where("input_hash = ?", inputHash).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + 1"),
			"last_used":   time.Now().UTC(),
		})
	if result.Error != nil {
		return models.ValidationCache{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.ValidationCache{}, gorm.ErrRecordNotFound
	}

	var entry models.ValidationCache
	if err := r.db.WithContext(ctx).Where("input_hash = ?", inputHash).First(&entry).Error; err != nil {
		return models.ValidationCache{}, err
	}
	return entry, nil
}

func (r *validationCacheRepository) Store(ctx context.Context, entry *models.ValidationCache) error {
	if entry.UsageCount == 0 {
		entry.UsageCount = 1
	}
	if entry.LastUsed.IsZero() {
		entry.LastUsed = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// Evict bulk-deletes entries whose last_used predates the cutoff and returns
// the number of rows removed.
func (r *validationCacheRepository) Evict(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("last_used < ?", olderThan).
		Delete(&models.ValidationCache{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
