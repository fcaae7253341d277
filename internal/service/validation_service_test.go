package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/dto"
	"github.com/habitloop/habitloop-api/internal/models"
	"github.com/habitloop/habitloop-api/internal/repository"
)

type stubCheckInRepo struct {
	checkins map[uint]models.CheckIn
	updated  []models.CheckIn
}

func newStubCheckInRepo() *stubCheckInRepo {
	return &stubCheckInRepo{checkins: make(map[uint]models.CheckIn)}
}

func (s *stubCheckInRepo) Create(_ context.Context, checkin *models.CheckIn) error {
	checkin.ID = uint(len(s.checkins) + 1)
	s.checkins[checkin.ID] = *checkin
	return nil
}

func (s *stubCheckInRepo) Update(_ context.Context, checkin *models.CheckIn) error {
	s.checkins[checkin.ID] = *checkin
	s.updated = append(s.updated, *checkin)
	return nil
}

func (s *stubCheckInRepo) GetByID(_ context.Context, id uint) (models.CheckIn, error) {
	checkin, ok := s.checkins[id]
	if !ok {
		return models.CheckIn{}, gorm.ErrRecordNotFound
	}
	return checkin, nil
}

func (s *stubCheckInRepo) ListApprovedSince(_ context.Context, userID uint, since time.Time) ([]models.CheckIn, error) {
	var out []models.CheckIn
	for _, checkin := range s.checkins {
		if checkin.Habit.UserID == userID && checkin.IsApproved && checkin.CreatedAt.After(since) {
			out = append(out, checkin)
		}
	}
	return out, nil
}

type stubLogRepo struct {
	logs    map[uint]models.ValidationLog
	created []models.ValidationLog
	stats   repository.UserValidationStats
}

func newStubLogRepo() *stubLogRepo {
	return &stubLogRepo{logs: make(map[uint]models.ValidationLog)}
}

func (s *stubLogRepo) Create(_ context.Context, log *models.ValidationLog) error {
	log.ID = uint(len(s.logs) + 1)
	s.logs[log.ID] = *log
	s.created = append(s.created, *log)
	return nil
}

func (s *stubLogRepo) Update(_ context.Context, log *models.ValidationLog) error {
	s.logs[log.ID] = *log
	return nil
}

func (s *stubLogRepo) GetByID(_ context.Context, id uint) (models.ValidationLog, error) {
	log, ok := s.logs[id]
	if !ok {
		return models.ValidationLog{}, gorm.ErrRecordNotFound
	}
	return log, nil
}

func (s *stubLogRepo) ListByUser(_ context.Context, _ uint, _, _ int) ([]models.ValidationLog, error) {
	out := make([]models.ValidationLog, 0, len(s.logs))
	for _, log := range s.logs {
		out = append(out, log)
	}
	return out, nil
}

func (s *stubLogRepo) UserStats(_ context.Context, _ uint, _ time.Time) (repository.UserValidationStats, error) {
	return s.stats, nil
}

type recordedAttempt struct {
	ruleID         uint
	success        bool
	confidence     *float64
	processingTime float64
}

type stubMetrics struct {
	attempts []recordedAttempt
}

func (s *stubMetrics) RecordAttempt(_ context.Context, ruleID uint, _ time.Time, success bool, confidence *float64, processingTime float64) {
	s.attempts = append(s.attempts, recordedAttempt{ruleID: ruleID, success: success, confidence: confidence, processingTime: processingTime})
}

type validationFixture struct {
	service  ValidationService
	checkins *stubCheckInRepo
	logs     *stubLogRepo
	cache    *stubCacheRepo
	metrics  *stubMetrics
}

func newValidationFixture(t *testing.T, generator *stubGenerator) *validationFixture {
	t.Helper()

	checkins := newStubCheckInRepo()
	logs := newStubLogRepo()
	cache := newStubCacheRepo()
	metrics := &stubMetrics{}
	engine := newTestEngine(textRule(), cache, generator)

	svc := NewValidationService(engine, checkins, logs, cache, metrics, nil, time.Minute, zerolog.Nop())
	return &validationFixture{service: svc, checkins: checkins, logs: logs, cache: cache, metrics: metrics}
}

func TestValidateCheckInSuccess(t *testing.T) {
	generator := &stubGenerator{response: `{"is_approved": true, "confidence": 0.92, "explanation": "Verified"}`}
	fx := newValidationFixture(t, generator)
	fx.checkins.checkins[1] = textCheckIn("A reflective entry with enough substance to validate.")

	resp, err := fx.service.ValidateCheckIn(context.Background(), 1, 7)
	require.NoError(t, err)

	require.True(t, resp.Success)
	require.True(t, resp.IsApproved)
	require.InDelta(t, 0.92, resp.Confidence, 1e-9)
	require.Equal(t, "Verified", resp.Feedback)

	// The check-in was mutated and persisted.
	require.Len(t, fx.checkins.updated, 1)
	saved := fx.checkins.updated[0]
	require.True(t, saved.IsApproved)
	require.NotNil(t, saved.AIConfidence)
	require.InDelta(t, 0.92, *saved.AIConfidence, 1e-9)
	require.Equal(t, "Verified", saved.AIFeedback)
	require.NotNil(t, saved.ValidatedAt)
	require.NotNil(t, saved.CompletedAt)

	// One audit log and one metrics attempt, keyed by the resolved rule.
	require.Len(t, fx.logs.created, 1)
	require.True(t, fx.logs.created[0].Success)
	require.NotNil(t, fx.logs.created[0].ValidationRuleID)
	require.Len(t, fx.metrics.attempts, 1)
	require.Equal(t, uint(1), fx.metrics.attempts[0].ruleID)
	require.True(t, fx.metrics.attempts[0].success)
	require.NotNil(t, fx.metrics.attempts[0].confidence)
}

func TestValidateCheckInRejectedBelowThreshold(t *testing.T) {
	generator := &stubGenerator{response: `{"is_approved": true, "confidence": 0.6}`}
	fx := newValidationFixture(t, generator)
	fx.checkins.checkins[1] = textCheckIn("An entry the model is unsure about.")

	resp, err := fx.service.ValidateCheckIn(context.Background(), 1, 7)
	require.NoError(t, err)

	require.True(t, resp.Success)
	require.False(t, resp.IsApproved)
	require.InDelta(t, 0.6, resp.Confidence, 1e-9)

	// Persisted, but not completed.
	require.Len(t, fx.checkins.updated, 1)
	require.False(t, fx.checkins.updated[0].IsApproved)
	require.Nil(t, fx.checkins.updated[0].CompletedAt)
}

func TestValidateCheckInFailureStillLogged(t *testing.T) {
	generator := &stubGenerator{err: context.DeadlineExceeded}
	fx := newValidationFixture(t, generator)
	fx.checkins.checkins[1] = textCheckIn("An entry the model never gets to see.")

	resp, err := fx.service.ValidateCheckIn(context.Background(), 1, 7)
	require.NoError(t, err)

	require.False(t, resp.Success)
	require.NotEmpty(t, resp.Error)

	// The check-in itself is left untouched on failure.
	require.Empty(t, fx.checkins.updated)

	// The failed attempt is logged and counted, with nil confidence.
	require.Len(t, fx.logs.created, 1)
	require.False(t, fx.logs.created[0].Success)
	require.Nil(t, fx.logs.created[0].ConfidenceScore)
	require.Len(t, fx.metrics.attempts, 1)
	require.False(t, fx.metrics.attempts[0].success)
	require.Nil(t, fx.metrics.attempts[0].confidence)
}

func TestValidateCheckInOwnership(t *testing.T) {
	fx := newValidationFixture(t, &stubGenerator{})
	fx.checkins.checkins[1] = textCheckIn("someone else's entry")

	_, err := fx.service.ValidateCheckIn(context.Background(), 1, 99)
	require.ErrorIs(t, err, ErrValidationForbidden)

	_, err = fx.service.ValidateCheckIn(context.Background(), 42, 7)
	require.ErrorIs(t, err, ErrCheckInNotFound)
}

func TestValidateCheckInAlreadyApproved(t *testing.T) {
	generator := &stubGenerator{response: `{"is_approved": true, "confidence": 0.9}`}
	fx := newValidationFixture(t, generator)

	confidence := 0.88
	checkin := textCheckIn("already done")
	checkin.IsApproved = true
	checkin.AIConfidence = &confidence
	fx.checkins.checkins[1] = checkin

	resp, err := fx.service.ValidateCheckIn(context.Background(), 1, 7)
	require.NoError(t, err)

	require.True(t, resp.IsApproved)
	require.InDelta(t, 0.88, resp.Confidence, 1e-9)
	// No model call, no new log, no metrics.
	require.Zero(t, generator.calls)
	require.Empty(t, fx.logs.created)
	require.Empty(t, fx.metrics.attempts)
}

func TestRetryFlipsFailedLog(t *testing.T) {
	generator := &stubGenerator{response: `{"is_approved": true, "confidence": 0.9, "explanation": "Now verified"}`}
	fx := newValidationFixture(t, generator)

	checkin := textCheckIn("An entry that failed transiently the first time.")
	fx.checkins.checkins[10] = checkin

	fx.logs.logs[3] = models.ValidationLog{
		ID:           3,
		CheckInID:    10,
		Success:      false,
		ErrorMessage: "text validation failed: timeout",
		CheckIn:      checkin,
	}

	resp, err := fx.service.Retry(context.Background(), 3, 7)
	require.NoError(t, err)

	require.True(t, resp.Success)
	require.True(t, resp.IsApproved)
	require.Equal(t, 1, resp.RetryCount)

	updated := fx.logs.logs[3]
	require.True(t, updated.Success)
	require.Equal(t, 1, updated.RetryCount)
	require.NotNil(t, updated.ConfidenceScore)
	require.InDelta(t, 0.9, *updated.ConfidenceScore, 1e-9)
	require.NotNil(t, updated.CompletedAt)

	// The outcome propagated to the check-in.
	require.Len(t, fx.checkins.updated, 1)
	require.True(t, fx.checkins.updated[0].IsApproved)
}

func TestRetryAlreadySuccessfulIsNoOp(t *testing.T) {
	generator := &stubGenerator{response: `{"is_approved": false, "confidence": 0.1}`}
	fx := newValidationFixture(t, generator)

	confidence := 0.95
	checkin := textCheckIn("done")
	fx.checkins.checkins[10] = checkin
	fx.logs.logs[3] = models.ValidationLog{
		ID:              3,
		CheckInID:       10,
		Success:         true,
		IsApproved:      true,
		ConfidenceScore: &confidence,
		RetryCount:      2,
		CheckIn:         checkin,
	}

	resp, err := fx.service.Retry(context.Background(), 3, 7)
	require.NoError(t, err)

	require.True(t, resp.Success)
	require.True(t, resp.IsApproved)
	require.InDelta(t, 0.95, resp.Confidence, 1e-9)
	require.Equal(t, 2, resp.RetryCount)
	require.Zero(t, generator.calls, "a successful log must not be re-validated")
}

func TestRetryUnknownLog(t *testing.T) {
	fx := newValidationFixture(t, &stubGenerator{})
	_, err := fx.service.Retry(context.Background(), 999, 7)
	require.ErrorIs(t, err, ErrValidationLogNotFound)
}

func TestRetryStillFailingKeepsLogFailed(t *testing.T) {
	generator := &stubGenerator{err: context.DeadlineExceeded}
	fx := newValidationFixture(t, generator)

	checkin := textCheckIn("still failing")
	fx.checkins.checkins[10] = checkin
	fx.logs.logs[3] = models.ValidationLog{ID: 3, CheckInID: 10, Success: false, CheckIn: checkin}

	resp, err := fx.service.Retry(context.Background(), 3, 7)
	require.NoError(t, err)

	require.False(t, resp.Success)
	require.False(t, fx.logs.logs[3].Success)
	require.Zero(t, fx.logs.logs[3].RetryCount)
	require.Empty(t, fx.checkins.updated)
}

func TestManualOverride(t *testing.T) {
	fx := newValidationFixture(t, &stubGenerator{})
	fx.checkins.checkins[1] = textCheckIn("needs a human decision")

	resp, err := fx.service.ManualOverride(context.Background(), dto.ManualValidationRequest{
		CheckInID:  1,
		IsApproved: true,
		AdminNotes: "verified by support",
	})
	require.NoError(t, err)

	require.True(t, resp.Success)
	require.True(t, resp.IsApproved)
	require.InDelta(t, 1.0, resp.Confidence, 1e-9)
	require.Contains(t, resp.Feedback, "Manually validated")

	// A rule-less audit entry marks the manual path.
	require.Len(t, fx.logs.created, 1)
	log := fx.logs.created[0]
	require.Nil(t, log.ValidationRuleID)
	require.True(t, log.Success)
	require.Equal(t, true, log.AIResponseParsed["manual_validation"])

	// Manual entries never touch the per-rule metrics.
	require.Empty(t, fx.metrics.attempts)
}

func TestManualOverrideRejection(t *testing.T) {
	fx := newValidationFixture(t, &stubGenerator{})
	fx.checkins.checkins[1] = textCheckIn("not convincing")

	resp, err := fx.service.ManualOverride(context.Background(), dto.ManualValidationRequest{
		CheckInID:  1,
		IsApproved: false,
	})
	require.NoError(t, err)

	require.False(t, resp.IsApproved)
	require.Zero(t, resp.Confidence)
	require.Len(t, fx.checkins.updated, 1)
	require.Nil(t, fx.checkins.updated[0].CompletedAt)
}

func TestClearCacheDefaultWindow(t *testing.T) {
	fx := newValidationFixture(t, &stubGenerator{})

	fx.cache.entries["old"] = models.ValidationCache{InputHash: "old", LastUsed: time.Now().AddDate(0, 0, -40)}
	fx.cache.entries["fresh"] = models.ValidationCache{InputHash: "fresh", LastUsed: time.Now().AddDate(0, 0, -5)}

	deleted, err := fx.service.ClearCache(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
	require.Contains(t, fx.cache.entries, "fresh")
	require.NotContains(t, fx.cache.entries, "old")
}

func TestPerformanceSummary(t *testing.T) {
	fx := newValidationFixture(t, &stubGenerator{})
	fx.logs.stats = repository.UserValidationStats{
		TotalValidations:      10,
		SuccessfulValidations: 8,
		AverageConfidence:     0.82,
		TodayValidations:      4,
		TodaySuccessful:       3,
	}

	resp, err := fx.service.PerformanceSummary(context.Background(), 7)
	require.NoError(t, err)

	require.Equal(t, int64(10), resp.UserMetrics.TotalValidations)
	require.InDelta(t, 0.8, resp.UserMetrics.SuccessRate, 1e-9)
	require.InDelta(t, 0.82, resp.UserMetrics.AverageConfidence, 1e-9)
	require.Equal(t, int64(4), resp.UserMetrics.TodayValidations)
	require.InDelta(t, 0.75, resp.UserMetrics.TodaySuccessRate, 1e-9)
}
