package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/habitloop/habitloop-api/internal/models"
	"github.com/habitloop/habitloop-api/pkg/ai"
)

type stubInsightRepo struct {
	created []models.ProgressInsight
}

func (s *stubInsightRepo) Create(_ context.Context, insight *models.ProgressInsight) error {
	insight.ID = uint(len(s.created) + 1)
	s.created = append(s.created, *insight)
	return nil
}

func (s *stubInsightRepo) ListByUser(_ context.Context, userID uint, _ int) ([]models.ProgressInsight, error) {
	var out []models.ProgressInsight
	for _, insight := range s.created {
		if insight.UserID == userID {
			out = append(out, insight)
		}
	}
	return out, nil
}

func newInsightFixture(generator *stubGenerator) (InsightService, *stubInsightRepo, *stubCheckInRepo, *stubHabitRepo) {
	insights := &stubInsightRepo{}
	checkins := newStubCheckInRepo()
	habits := &stubHabitRepo{habits: map[uint]models.Habit{
		5: {ID: 5, UserID: 7, Title: "Daily journaling", IsActive: true},
	}}
	registry := ai.NewRegistry(func(_ string) (ai.Generator, error) { return generator, nil })
	svc := NewInsightService(insights, checkins, habits, registry, "test-model", zerolog.Nop())
	return svc, insights, checkins, habits
}

func TestGenerateWeeklyUsesModelNarrative(t *testing.T) {
	generator := &stubGenerator{response: `{"confidence": 0.9, "explanation": "A strong week of journaling."}`}
	svc, insights, checkins, _ := newInsightFixture(generator)

	approved := textCheckIn("entry")
	approved.IsApproved = true
	approved.CreatedAt = time.Now().AddDate(0, 0, -1)
	checkins.checkins[1] = approved

	resp, err := svc.GenerateWeekly(context.Background(), 7)
	require.NoError(t, err)

	require.Equal(t, "weekly_summary", resp.InsightType)
	require.Equal(t, "A strong week of journaling.", resp.Description)
	require.Len(t, insights.created, 1)
	require.Equal(t, 1, insights.created[0].Data["active_habits"])
	require.Equal(t, 1, insights.created[0].Data["approved_check_ins"])
}

func TestGenerateWeeklyFallsBackWhenModelFails(t *testing.T) {
	generator := &stubGenerator{err: errors.New("model unavailable")}
	svc, insights, _, _ := newInsightFixture(generator)

	resp, err := svc.GenerateWeekly(context.Background(), 7)
	require.NoError(t, err)

	require.Contains(t, resp.Description, "approved check-ins")
	require.Len(t, insights.created, 1)
}

func TestGenerateWeeklyMarksActionableWeeks(t *testing.T) {
	generator := &stubGenerator{response: `{"confidence": 0.9, "explanation": "Room to grow."}`}
	svc, insights, _, _ := newInsightFixture(generator)

	// One active habit, zero approved check-ins: actionable.
	_, err := svc.GenerateWeekly(context.Background(), 7)
	require.NoError(t, err)

	require.True(t, insights.created[0].IsActionable)
	require.NotEmpty(t, insights.created[0].ActionTitle)
}

func TestGenerateWeeklyForAllUsersSurvivesPerUserFailure(t *testing.T) {
	generator := &stubGenerator{response: `{"confidence": 0.9, "explanation": "Fine."}`}
	svc, insights, _, habits := newInsightFixture(generator)
	habits.habits[6] = models.Habit{ID: 6, UserID: 8, Title: "Running", IsActive: true}

	err := svc.GenerateWeeklyForAllUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, insights.created, 2)
}
