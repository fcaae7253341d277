package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/habitloop/habitloop-api/internal/service"
)

const (
	cacheEvictionInterval = 24 * time.Hour
	weeklyInsightInterval = 7 * 24 * time.Hour
)

// Scheduler drives the periodic maintenance jobs: daily cache eviction and
// the weekly insight sweep. One scheduler per process is expected; the jobs
// themselves are idempotent enough that overlap across nodes is tolerable.
type Scheduler struct {
	validations  service.ValidationService
	insights     service.InsightService
	evictionDays int
	logger       zerolog.Logger
}

// NewScheduler constructs the maintenance scheduler. evictionDays bounds the
// age of retained cache entries; non-positive values fall back to the service
// default.
func NewScheduler(validations service.ValidationService, insights service.InsightService, evictionDays int, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		validations:  validations,
		insights:     insights,
		evictionDays: evictionDays,
		logger:       logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches the periodic jobs and blocks until the context ends.
func (s *Scheduler) Start(ctx context.Context) {
	eviction := time.NewTicker(cacheEvictionInterval)
	insights := time.NewTicker(weeklyInsightInterval)
	defer eviction.Stop()
	defer insights.Stop()

	s.logger.Info().Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-eviction.C:
			s.runCacheEviction(ctx)
		case <-insights.C:
			s.runWeeklyInsights(ctx)
		}
	}
}

func (s *Scheduler) runCacheEviction(ctx context.Context) {
	deleted, err := s.validations.ClearCache(ctx, s.evictionDays)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled cache eviction failed")
		return
	}
	s.logger.Info().Int64("deleted", deleted).Msg("scheduled cache eviction finished")
}

func (s *Scheduler) runWeeklyInsights(ctx context.Context) {
	if err := s.insights.GenerateWeeklyForAllUsers(ctx); err != nil {
		s.logger.Error().Err(err).Msg("weekly insight sweep failed")
	}
}
