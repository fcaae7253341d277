package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/habitloop/habitloop-api/internal/dto"
	"github.com/habitloop/habitloop-api/internal/models"
	"github.com/habitloop/habitloop-api/internal/repository"
	"github.com/habitloop/habitloop-api/pkg/ai"
)

const insightLookbackDays = 7

// InsightService generates and serves weekly progress insights. Generation
// shares the model registry with validation but tolerates model outages by
// falling back to a canned summary built from the raw counts.
type InsightService interface {
	GenerateWeekly(ctx context.Context, userID uint) (dto.InsightResponse, error)
	GenerateWeeklyForAllUsers(ctx context.Context) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]dto.InsightResponse, error)
}

type insightService struct {
	insights repository.ProgressInsightRepository
	checkins repository.CheckInRepository
	habits   repository.HabitRepository
	registry *ai.Registry
	model    string
	logger   zerolog.Logger
	now      func() time.Time
}

// NewInsightService constructs the insight service.
func NewInsightService(insights repository.ProgressInsightRepository, checkins repository.CheckInRepository, habits repository.HabitRepository, registry *ai.Registry, model string, logger zerolog.Logger) InsightService {
	return &insightService{
		insights: insights,
		checkins: checkins,
		habits:   habits,
		registry: registry,
		model:    model,
		logger:   logger.With().Str("component", "insight_service").Logger(),
		now:      time.Now,
	}
}

func (s *insightService) GenerateWeekly(ctx context.Context, userID uint) (dto.InsightResponse, error) {
	since := s.now().AddDate(0, 0, -insightLookbackDays)

	habits, err := s.habits.ListActiveByUser(ctx, userID)
	if err != nil {
		return dto.InsightResponse{}, err
	}
	approved, err := s.checkins.ListApprovedSince(ctx, userID, since)
	if err != nil {
		return dto.InsightResponse{}, err
	}

	title, description := s.compose(ctx, habits, approved)

	insight := models.ProgressInsight{
		UserID:      userID,
		InsightType: "weekly_summary",
		Title:       title,
		Description: description,
		Data: datatypes.JSONMap{
			"active_habits":      len(habits),
			"approved_check_ins": len(approved),
			"window_days":        insightLookbackDays,
		},
		IsActionable: len(approved) < len(habits)*insightLookbackDays,
	}
	if insight.IsActionable {
		insight.ActionTitle = "Close the gap"
		insight.ActionDescription = "Pick your weakest habit and schedule a fixed time for it tomorrow."
	}

	if err := s.insights.Create(ctx, &insight); err != nil {
		return dto.InsightResponse{}, err
	}
	return dto.NewInsightResponse(insight), nil
}

// GenerateWeeklyForAllUsers is driven by the scheduler. Per-user failures are
// logged and skipped so one bad account cannot stall the sweep.
func (s *insightService) GenerateWeeklyForAllUsers(ctx context.Context) error {
	userIDs, err := s.habits.ListUserIDsWithActiveHabits(ctx)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		if _, err := s.GenerateWeekly(ctx, userID); err != nil {
			s.logger.Error().Err(err).Uint("user_id", userID).Msg("weekly insight generation failed")
		}
	}

	s.logger.Info().Int("users", len(userIDs)).Msg("weekly insight sweep finished")
	return nil
}

func (s *insightService) ListByUser(ctx context.Context, userID uint, limit int) ([]dto.InsightResponse, error) {
	insights, err := s.insights.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.InsightResponse, 0, len(insights))
	for _, insight := range insights {
		responses = append(responses, dto.NewInsightResponse(insight))
	}
	return responses, nil
}

// compose asks the model for a short narrative summary; when the model is
// unavailable or returns nothing usable, the canned summary stands in.
func (s *insightService) compose(ctx context.Context, habits []models.Habit, approved []models.CheckIn) (string, string) {
	title := "Your week in habits"
	fallback := fmt.Sprintf("You completed %d approved check-ins across %d active habits this week.", len(approved), len(habits))

	generator, err := s.registry.Get(s.model)
	if err != nil {
		return title, fallback
	}

	names := make([]string, 0, len(habits))
	for _, habit := range habits {
		names = append(names, habit.Title)
	}

	prompt := fmt.Sprintf(`You are a supportive habit coach. Summarize the user's last %d days in 2-3 sentences.

Active habits: %s
Approved check-ins this week: %d

Respond in JSON with keys "explanation" (the summary) and "confidence".`,
		insightLookbackDays, strings.Join(names, ", "), len(approved))

	raw, err := generator.Generate(ctx, ai.GenerateRequest{Prompt: prompt})
	if err != nil {
		s.logger.Warn().Err(err).Msg("insight generation fell back to canned summary")
		return title, fallback
	}

	verdict := ai.ParseResponse(raw)
	if verdict.Explanation == "" || verdict.Explanation == ai.DefaultExplanation {
		return title, fallback
	}
	return title, verdict.Explanation
}
