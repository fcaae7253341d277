package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/dto"
	"github.com/habitloop/habitloop-api/internal/models"
	"github.com/habitloop/habitloop-api/internal/repository"
)

// ErrCheckInNotFound indicates the check-in cannot be located.
var ErrCheckInNotFound = errors.New("check-in not found")

// ErrValidationLogNotFound indicates the validation log cannot be located.
var ErrValidationLogNotFound = errors.New("validation log not found")

// ErrValidationForbidden indicates the caller does not own the record.
var ErrValidationForbidden = errors.New("forbidden")

const defaultCacheEvictionDays = 30

// ValidationService exposes the check-in validation operations consumed by
// the HTTP surface and the async workers. Internal callers pass userID 0 to
// skip the ownership check.
type ValidationService interface {
	ValidateCheckIn(ctx context.Context, checkinID, userID uint) (dto.ValidationResponse, error)
	Retry(ctx context.Context, logID, userID uint) (dto.RetryResponse, error)
	ManualOverride(ctx context.Context, payload dto.ManualValidationRequest) (dto.ValidationResponse, error)
	ClearCache(ctx context.Context, olderThanDays int) (int64, error)
	ListLogs(ctx context.Context, userID uint, limit, offset int) ([]dto.ValidationLogResponse, error)
	PerformanceSummary(ctx context.Context, userID uint) (dto.PerformanceSummaryResponse, error)
}

type validationService struct {
	engine   *ValidationEngine
	checkins repository.CheckInRepository
	logs     repository.ValidationLogRepository
	cache    repository.ValidationCacheRepository
	metrics  MetricsRecorder
	redis    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewValidationService constructs the validation service.
func NewValidationService(engine *ValidationEngine, checkins repository.CheckInRepository, logs repository.ValidationLogRepository, cache repository.ValidationCacheRepository, metrics MetricsRecorder, redisClient *redis.Client, summaryTTL time.Duration, logger zerolog.Logger) ValidationService {
	return &validationService{
		engine:   engine,
		checkins: checkins,
		logs:     logs,
		cache:    cache,
		metrics:  metrics,
		redis:    redisClient,
		cacheTTL: summaryTTL,
		logger:   logger.With().Str("component", "validation_service").Logger(),
		now:      time.Now,
	}
}

func (s *validationService) ValidateCheckIn(ctx context.Context, checkinID, userID uint) (dto.ValidationResponse, error) {
	checkin, err := s.checkins.GetByID(ctx, checkinID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ValidationResponse{}, ErrCheckInNotFound
		}
		return dto.ValidationResponse{}, err
	}

	if userID != 0 && checkin.Habit.UserID != userID {
		return dto.ValidationResponse{}, ErrValidationForbidden
	}

	// Approved check-ins are never re-validated.
	if checkin.IsApproved {
		confidence := 0.0
		if checkin.AIConfidence != nil {
			confidence = *checkin.AIConfidence
		}
		return dto.ValidationResponse{
			Success:    true,
			IsApproved: true,
			Confidence: confidence,
			Feedback:   "Check-in already approved",
		}, nil
	}

	result := s.engine.Validate(ctx, checkin)

	if result.Success {
		s.applyResultToCheckIn(ctx, &checkin, result)
	}

	s.appendLog(ctx, checkin.ID, result, 0)

	return dto.ValidationResponse{
		Success:    result.Success,
		IsApproved: result.IsApproved,
		Confidence: result.Confidence,
		Feedback:   result.Explanation,
		FromCache:  result.FromCache,
		Error:      result.Error,
	}, nil
}

// Retry re-runs the full validation pipeline for the log's check-in. A log
// that already succeeded is returned as-is, which keeps redeliveries from an
// at-least-once queue harmless. Retry counts accumulate without a cap.
func (s *validationService) Retry(ctx context.Context, logID, userID uint) (dto.RetryResponse, error) {
	log, err := s.logs.GetByID(ctx, logID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RetryResponse{}, ErrValidationLogNotFound
		}
		return dto.RetryResponse{}, err
	}

	if userID != 0 && log.CheckIn.Habit.UserID != userID {
		return dto.RetryResponse{}, ErrValidationForbidden
	}

	if log.Success {
		confidence := 0.0
		if log.ConfidenceScore != nil {
			confidence = *log.ConfidenceScore
		}
		return dto.RetryResponse{
			Success:    true,
			IsApproved: log.IsApproved,
			Confidence: confidence,
			RetryCount: log.RetryCount,
		}, nil
	}

	result := s.engine.Validate(ctx, log.CheckIn)

	if result.Success {
		log.RetryCount++
		log.Success = true
		confidence := result.Confidence
		log.ConfidenceScore = &confidence
		log.IsApproved = result.IsApproved
		log.AIResponseRaw = result.RawResponse
		log.AIResponseParsed = datatypes.JSONMap(result.ParsedData)
		log.ProcessingTime = result.ProcessingTime
		now := s.now()
		log.CompletedAt = &now
		if err := s.logs.Update(ctx, &log); err != nil {
			return dto.RetryResponse{}, err
		}

		checkin := log.CheckIn
		s.applyResultToCheckIn(ctx, &checkin, result)
	}

	return dto.RetryResponse{
		Success:    result.Success,
		IsApproved: result.IsApproved,
		Confidence: result.Confidence,
		RetryCount: log.RetryCount,
	}, nil
}

// ManualOverride bypasses the AI entirely and records a rule-less audit
// entry.
func (s *validationService) ManualOverride(ctx context.Context, payload dto.ManualValidationRequest) (dto.ValidationResponse, error) {
	checkin, err := s.checkins.GetByID(ctx, payload.CheckInID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ValidationResponse{}, ErrCheckInNotFound
		}
		return dto.ValidationResponse{}, err
	}

	confidence := 0.0
	if payload.IsApproved {
		confidence = 1.0
	}

	feedback := "Manually validated"
	if payload.AdminNotes != "" {
		feedback = fmt.Sprintf("Manually validated: %s", payload.AdminNotes)
	}

	now := s.now()
	checkin.IsApproved = payload.IsApproved
	checkin.AIConfidence = &confidence
	checkin.AIFeedback = feedback
	checkin.ValidatedAt = &now
	if checkin.IsApproved && checkin.CompletedAt == nil {
		checkin.CompletedAt = &now
	}
	if err := s.checkins.Update(ctx, &checkin); err != nil {
		return dto.ValidationResponse{}, err
	}

	log := models.ValidationLog{
		CheckInID:        checkin.ID,
		ValidationRuleID: nil,
		InputDataPreview: "Manual validation",
		AIResponseParsed: datatypes.JSONMap{"manual_validation": true},
		ConfidenceScore:  &confidence,
		IsApproved:       payload.IsApproved,
		Success:          true,
		CompletedAt:      &now,
	}
	if err := s.logs.Create(ctx, &log); err != nil {
		s.logger.Error().Err(err).Uint("checkin_id", checkin.ID).Msg("failed to log manual validation")
	}

	return dto.ValidationResponse{
		Success:    true,
		IsApproved: payload.IsApproved,
		Confidence: confidence,
		Feedback:   feedback,
	}, nil
}

func (s *validationService) ClearCache(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		olderThanDays = defaultCacheEvictionDays
	}

	cutoff := s.now().AddDate(0, 0, -olderThanDays)
	deleted, err := s.cache.Evict(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int64("deleted", deleted).Int("older_than_days", olderThanDays).Msg("validation cache evicted")
	return deleted, nil
}

func (s *validationService) ListLogs(ctx context.Context, userID uint, limit, offset int) ([]dto.ValidationLogResponse, error) {
	logs, err := s.logs.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ValidationLogResponse, 0, len(logs))
	for _, log := range logs {
		responses = append(responses, dto.NewValidationLogResponse(log))
	}
	return responses, nil
}

func (s *validationService) PerformanceSummary(ctx context.Context, userID uint) (dto.PerformanceSummaryResponse, error) {
	cacheKey := fmt.Sprintf("performance:user:%d", userID)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.PerformanceSummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read performance summary cache")
		}
	}

	stats, err := s.logs.UserStats(ctx, userID, s.now())
	if err != nil {
		return dto.PerformanceSummaryResponse{}, err
	}

	metrics := dto.UserPerformanceMetrics{
		TotalValidations:  stats.TotalValidations,
		AverageConfidence: stats.AverageConfidence,
		TodayValidations:  stats.TodayValidations,
	}
	if stats.TotalValidations > 0 {
		metrics.SuccessRate = float64(stats.SuccessfulValidations) / float64(stats.TotalValidations)
	}
	if stats.TodayValidations > 0 {
		metrics.TodaySuccessRate = float64(stats.TodaySuccessful) / float64(stats.TodayValidations)
	}

	response := dto.PerformanceSummaryResponse{UserMetrics: metrics}

	if s.redis != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.redis.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store performance summary cache")
			}
		}
	}

	return response, nil
}

func (s *validationService) applyResultToCheckIn(ctx context.Context, checkin *models.CheckIn, result ValidationResult) {
	confidence := result.Confidence
	now := s.now()

	checkin.AIConfidence = &confidence
	checkin.AIFeedback = result.Explanation
	checkin.IsApproved = result.IsApproved
	checkin.ValidatedAt = &now
	if checkin.IsApproved && checkin.CompletedAt == nil {
		checkin.CompletedAt = &now
	}

	if err := s.checkins.Update(ctx, checkin); err != nil {
		s.logger.Error().Err(err).Uint("checkin_id", checkin.ID).Msg("failed to persist validation outcome")
	}
}

// appendLog writes the audit record for one attempt and feeds the metrics
// aggregator when a rule was involved.
func (s *validationService) appendLog(ctx context.Context, checkinID uint, result ValidationResult, retryCount int) {
	var confidence *float64
	if result.Success {
		value := result.Confidence
		confidence = &value
	}

	now := s.now()
	log := models.ValidationLog{
		CheckInID:        checkinID,
		ValidationRuleID: result.RuleID,
		AIResponseRaw:    result.RawResponse,
		AIResponseParsed: datatypes.JSONMap(result.ParsedData),
		ConfidenceScore:  confidence,
		IsApproved:       result.IsApproved,
		ProcessingTime:   result.ProcessingTime,
		Success:          result.Success,
		ErrorMessage:     result.Error,
		RetryCount:       retryCount,
		CompletedAt:      &now,
	}

	if err := s.logs.Create(ctx, &log); err != nil {
		s.logger.Error().Err(err).Uint("checkin_id", checkinID).Msg("failed to append validation log")
		return
	}

	if result.RuleID != nil {
		s.metrics.RecordAttempt(ctx, *result.RuleID, now, result.Success, confidence, result.ProcessingTime)
	}
}
