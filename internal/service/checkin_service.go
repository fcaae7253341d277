package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/dto"
	"github.com/habitloop/habitloop-api/internal/models"
	"github.com/habitloop/habitloop-api/internal/repository"
)

// ErrHabitNotFound indicates the habit cannot be located or is inactive.
var ErrHabitNotFound = errors.New("habit not found")

// ErrCheckInExists indicates a check-in already exists for the habit today.
var ErrCheckInExists = errors.New("check-in already exists for today")

// ValidationDispatcher hands a check-in to the async validation pipeline.
// The HTTP layer never validates inline; it enqueues and returns.
type ValidationDispatcher interface {
	EnqueueValidate(ctx context.Context, checkinID uint) error
}

// PhotoUploader mirrors the cloudinary service surface so tests can stub it.
type PhotoUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// CheckInService handles submission of daily completion evidence.
type CheckInService interface {
	Submit(ctx context.Context, userID uint, req dto.CheckInSubmitRequest, photoName string, photo []byte) (dto.CheckInResponse, error)
	GetByID(ctx context.Context, checkinID, userID uint) (dto.CheckInResponse, error)
}

type checkInService struct {
	checkins   repository.CheckInRepository
	habits     repository.HabitRepository
	uploader   PhotoUploader
	dispatcher ValidationDispatcher
	logger     zerolog.Logger
	now        func() time.Time
}

// NewCheckInService constructs the check-in service. The uploader may be nil
// when no media storage is configured; photo bytes are still persisted.
func NewCheckInService(checkins repository.CheckInRepository, habits repository.HabitRepository, uploader PhotoUploader, dispatcher ValidationDispatcher, logger zerolog.Logger) CheckInService {
	return &checkInService{
		checkins:   checkins,
		habits:     habits,
		uploader:   uploader,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "checkin_service").Logger(),
		now:        time.Now,
	}
}

func (s *checkInService) Submit(ctx context.Context, userID uint, req dto.CheckInSubmitRequest, photoName string, photo []byte) (dto.CheckInResponse, error) {
	habit, err := s.habits.GetByID(ctx, req.HabitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CheckInResponse{}, ErrHabitNotFound
		}
		return dto.CheckInResponse{}, err
	}
	if habit.UserID != userID || !habit.IsActive {
		return dto.CheckInResponse{}, ErrHabitNotFound
	}

	now := s.now()
	checkin := models.CheckIn{
		HabitID:                  habit.ID,
		Date:                     time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		TextProof:                req.TextProof,
		AudioProofName:           req.AudioProofName,
		ScreenRecordingProofName: req.ScreenRecordingName,
		IsSelfReport:             req.IsSelfReport,
		SelfReportDescription:    req.SelfReportDescription,
		Notes:                    req.Notes,
	}

	if len(photo) > 0 {
		checkin.PhotoProof = photo
		checkin.PhotoProofName = photoName

		if s.uploader != nil {
			url, err := s.uploader.Upload(ctx, photoName, bytes.NewReader(photo))
			if err != nil {
				// The bytes are persisted regardless; the mirror is cosmetic.
				s.logger.Warn().Err(err).Str("file", photoName).Msg("photo mirror upload failed")
			} else {
				checkin.PhotoProofURL = url
			}
		}
	}

	if err := s.checkins.Create(ctx, &checkin); err != nil {
		if isUniqueViolation(err) {
			return dto.CheckInResponse{}, ErrCheckInExists
		}
		return dto.CheckInResponse{}, err
	}
	checkin.Habit = habit

	// Self-reports skip AI validation entirely.
	if !checkin.IsSelfReport && s.dispatcher != nil {
		if err := s.dispatcher.EnqueueValidate(ctx, checkin.ID); err != nil {
			s.logger.Error().Err(err).Uint("checkin_id", checkin.ID).Msg("failed to enqueue validation")
		}
	}

	return dto.NewCheckInResponse(checkin), nil
}

func (s *checkInService) GetByID(ctx context.Context, checkinID, userID uint) (dto.CheckInResponse, error) {
	checkin, err := s.checkins.GetByID(ctx, checkinID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CheckInResponse{}, ErrCheckInNotFound
		}
		return dto.CheckInResponse{}, err
	}
	if checkin.Habit.UserID != userID {
		return dto.CheckInResponse{}, ErrValidationForbidden
	}
	return dto.NewCheckInResponse(checkin), nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
