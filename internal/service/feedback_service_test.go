package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/habitloop/habitloop-api/internal/dto"
	"github.com/habitloop/habitloop-api/internal/models"
)

type stubFeedbackRepo struct {
	created []models.AIFeedback
}

func (s *stubFeedbackRepo) Create(_ context.Context, feedback *models.AIFeedback) error {
	feedback.ID = uint(len(s.created) + 1)
	s.created = append(s.created, *feedback)
	return nil
}

func (s *stubFeedbackRepo) ListByUser(_ context.Context, userID uint) ([]models.AIFeedback, error) {
	var out []models.AIFeedback
	for _, feedback := range s.created {
		if feedback.UserID == userID {
			out = append(out, feedback)
		}
	}
	return out, nil
}

func TestFeedbackCreateSanitizesMarkup(t *testing.T) {
	feedback := &stubFeedbackRepo{}
	checkins := newStubCheckInRepo()
	checkins.checkins[1] = textCheckIn("entry")

	svc := NewFeedbackService(feedback, checkins, zerolog.Nop())

	resp, err := svc.Create(context.Background(), 7, dto.FeedbackCreateRequest{
		CheckInID:      1,
		FeedbackType:   models.FeedbackTypeFalseNegative,
		Description:    `The photo was real <script>alert("x")</script>`,
		ExpectedResult: "<b>approved</b>",
	})
	require.NoError(t, err)

	require.NotContains(t, resp.Description, "<script>")
	require.Equal(t, "approved", resp.ExpectedResult)
	require.Equal(t, models.FeedbackTypeFalseNegative, resp.FeedbackType)
	require.Len(t, feedback.created, 1)
}

func TestFeedbackCreateRejectsForeignCheckIn(t *testing.T) {
	checkins := newStubCheckInRepo()
	checkins.checkins[1] = textCheckIn("entry")

	svc := NewFeedbackService(&stubFeedbackRepo{}, checkins, zerolog.Nop())

	_, err := svc.Create(context.Background(), 99, dto.FeedbackCreateRequest{
		CheckInID:    1,
		FeedbackType: models.FeedbackTypeBug,
		Description:  "not mine",
	})
	require.ErrorIs(t, err, ErrValidationForbidden)

	_, err = svc.Create(context.Background(), 7, dto.FeedbackCreateRequest{
		CheckInID:    404,
		FeedbackType: models.FeedbackTypeBug,
		Description:  "missing",
	})
	require.ErrorIs(t, err, ErrCheckInNotFound)
}
