package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/habitloop/habitloop-api/internal/repository"
)

// MetricsRecorder folds validation attempts into the per-rule per-day
// performance rows. It is invoked explicitly after each log append rather
// than through implicit event wiring, which keeps the update observable and
// testable. Recording failures are logged and swallowed; metrics must never
// fail a validation.
type MetricsRecorder interface {
	RecordAttempt(ctx context.Context, ruleID uint, at time.Time, success bool, confidence *float64, processingTime float64)
}

// NewMetricsRecorder constructs a metrics recorder over the performance
// repository.
func NewMetricsRecorder(performance repository.ModelPerformanceRepository, logger zerolog.Logger) MetricsRecorder {
	return &metricsRecorder{
		performance: performance,
		logger:      logger.With().Str("component", "metrics_recorder").Logger(),
	}
}

type metricsRecorder struct {
	performance repository.ModelPerformanceRepository
	logger      zerolog.Logger
}

func (m *metricsRecorder) RecordAttempt(ctx context.Context, ruleID uint, at time.Time, success bool, confidence *float64, processingTime float64) {
	if err := m.performance.Record(ctx, ruleID, at, success, confidence, processingTime); err != nil {
		m.logger.Error().Err(err).Uint("rule_id", ruleID).Msg("failed to record model performance")
	}
}
