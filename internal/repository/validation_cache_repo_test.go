package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/models"
)

func seedRule(t *testing.T, db *gorm.DB) models.ValidationRule {
	t.Helper()
	rule := models.ValidationRule{
		Name:                "Photo validation",
		ValidationType:      models.ValidationTypePhoto,
		PromptTemplate:      "Assess this proof for: {validation_prompt}",
		ConfidenceThreshold: 0.85,
		IsActive:            true,
	}
	require.NoError(t, db.Create(&rule).Error)
	return rule
}

func TestValidationCacheHitIncrementsUsage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewValidationCacheRepository(db)
	rule := seedRule(t, db)

	entry := models.ValidationCache{
		InputHash:        "a1b2c3",
		ValidationRuleID: rule.ID,
		AIResponse:       datatypes.JSONMap{"is_approved": true},
		ConfidenceScore:  0.9,
		IsApproved:       true,
		LastUsed:         time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.Store(context.Background(), &entry))
	require.Equal(t, 1, entry.UsageCount)

	hit, err := repo.Hit(context.Background(), "a1b2c3")
	require.NoError(t, err)
	require.Equal(t, 2, hit.UsageCount)
	require.True(t, hit.IsApproved)
	require.WithinDuration(t, time.Now(), hit.LastUsed, time.Minute)

	hit, err = repo.Hit(context.Background(), "a1b2c3")
	require.NoError(t, err)
	require.Equal(t, 3, hit.UsageCount)
}

func TestValidationCacheMiss(t *testing.T) {
	db := setupTestDB(t)
	repo := NewValidationCacheRepository(db)

	_, err := repo.Hit(context.Background(), "unknown")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestValidationCacheEvictRemovesStaleEntries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewValidationCacheRepository(db)
	rule := seedRule(t, db)

	stale := models.ValidationCache{
		InputHash:        "stale",
		ValidationRuleID: rule.ID,
		ConfidenceScore:  0.8,
		LastUsed:         time.Now().AddDate(0, 0, -40),
	}
	fresh := models.ValidationCache{
		InputHash:        "fresh",
		ValidationRuleID: rule.ID,
		ConfidenceScore:  0.8,
		LastUsed:         time.Now().AddDate(0, 0, -10),
	}
	require.NoError(t, repo.Store(context.Background(), &stale))
	require.NoError(t, repo.Store(context.Background(), &fresh))

	deleted, err := repo.Evict(context.Background(), time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = repo.Hit(context.Background(), "stale")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	hit, err := repo.Hit(context.Background(), "fresh")
	require.NoError(t, err)
	require.Equal(t, 2, hit.UsageCount)
}
