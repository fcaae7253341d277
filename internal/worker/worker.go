package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/habitloop/habitloop-api/internal/service"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 3
	requeueDelay        = time.Minute
)

// TaskSource is the queue surface the worker consumes. Satisfied by *Queue.
type TaskSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	Requeue(ctx context.Context, task Task) error
	Listen(ctx context.Context)
	Wake() <-chan struct{}
}

// Worker drains the validation queue. Tasks run with userID 0, which skips
// ownership checks; authorization happened when the task was enqueued.
type Worker struct {
	queue       TaskSource
	validations service.ValidationService
	maxAttempts int
	logger      zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration)
}

// NewWorker constructs a validation worker.
func NewWorker(queue TaskSource, validations service.ValidationService, logger zerolog.Logger) *Worker {
	return &Worker{
		queue:       queue,
		validations: validations,
		maxAttempts: defaultMaxAttempts,
		logger:      logger.With().Str("component", "validation_worker").Logger(),
		sleep: func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		},
	}
}

// Start runs the consume loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.queue.Listen(ctx)
	w.logger.Info().Msg("validation worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("validation worker stopped")
			return
		default:
		}

		task, err := w.queue.Dequeue(ctx, defaultPollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error().Err(err).Msg("queue dequeue failed")
			w.sleep(ctx, defaultPollInterval)
			continue
		}
		if task == nil {
			continue
		}

		w.handle(ctx, *task)
	}
}

func (w *Worker) handle(ctx context.Context, task Task) {
	var failed bool

	switch task.Kind {
	case TaskValidate:
		resp, err := w.validations.ValidateCheckIn(ctx, task.CheckInID, 0)
		if err != nil {
			if errors.Is(err, service.ErrCheckInNotFound) {
				w.logger.Warn().Uint("checkin_id", task.CheckInID).Msg("dropping task for missing check-in")
				return
			}
			w.logger.Error().Err(err).Uint("checkin_id", task.CheckInID).Msg("validation task errored")
			failed = true
		} else {
			failed = !resp.Success
		}
	case TaskRetry:
		resp, err := w.validations.Retry(ctx, task.LogID, 0)
		if err != nil {
			if errors.Is(err, service.ErrValidationLogNotFound) {
				w.logger.Warn().Uint("log_id", task.LogID).Msg("dropping retry for missing log")
				return
			}
			w.logger.Error().Err(err).Uint("log_id", task.LogID).Msg("retry task errored")
			failed = true
		} else {
			failed = !resp.Success
		}
	default:
		w.logger.Warn().Str("kind", task.Kind).Msg("dropping unknown task kind")
		return
	}

	if !failed {
		return
	}

	if task.Attempt+1 >= w.maxAttempts {
		w.logger.Warn().
			Str("kind", task.Kind).
			Uint("checkin_id", task.CheckInID).
			Uint("log_id", task.LogID).
			Int("attempts", task.Attempt+1).
			Msg("giving up on validation task")
		return
	}

	w.sleep(ctx, requeueDelay)
	if ctx.Err() != nil {
		return
	}
	if err := w.queue.Requeue(ctx, task); err != nil {
		w.logger.Error().Err(err).Msg("failed to requeue validation task")
	}
}
