package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Task kinds carried on the validation queue.
const (
	TaskValidate = "validate"
	TaskRetry    = "retry"
)

// Task is one unit of asynchronous validation work. Attempt counts from zero
// and is bumped by the worker on each requeue.
type Task struct {
	Kind      string    `json:"kind"`
	CheckInID uint      `json:"checkin_id,omitempty"`
	LogID     uint      `json:"log_id,omitempty"`
	Attempt   int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue is a durable task queue backed by a redis list, with a NATS nudge so
// idle workers on other nodes wake immediately instead of on the next poll.
// Redis is the source of truth; NATS delivery is best-effort.
type Queue struct {
	redis       *redis.Client
	listKey     string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	wake        chan struct{}
}

// NewQueue constructs a queue. channelBase namespaces the redis key and NATS
// subject, mirroring how other cross-node channels are derived.
func NewQueue(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) *Queue {
	listKey := ""
	subject := ""
	if channelBase != "" {
		listKey = channelBase + ":validation:tasks"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".validation.tasks"
	}

	return &Queue{
		redis:       redisClient,
		listKey:     listKey,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "validation_queue").Logger(),
		wake:        make(chan struct{}, 1),
	}
}

// EnqueueValidate schedules a fresh validation for the check-in.
func (q *Queue) EnqueueValidate(ctx context.Context, checkinID uint) error {
	return q.push(ctx, Task{Kind: TaskValidate, CheckInID: checkinID})
}

// EnqueueRetry schedules a re-run for a failed validation log.
func (q *Queue) EnqueueRetry(ctx context.Context, logID uint) error {
	return q.push(ctx, Task{Kind: TaskRetry, LogID: logID})
}

// Requeue puts a task back with its attempt counter advanced.
func (q *Queue) Requeue(ctx context.Context, task Task) error {
	task.Attempt++
	return q.push(ctx, task)
}

func (q *Queue) push(ctx context.Context, task Task) error {
	if q.redis == nil || q.listKey == "" {
		return errors.New("validation queue is not configured")
	}

	task.EnqueuedAt = time.Now().UTC()
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	if err := q.redis.LPush(ctx, q.listKey, payload).Err(); err != nil {
		return err
	}

	if q.nats != nil && q.natsSubject != "" {
		if err := q.nats.Publish(q.natsSubject, nil); err != nil {
			q.logger.Warn().Err(err).Msg("failed to publish queue nudge")
		}
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}

	return nil
}

// Dequeue blocks until a task is available or the context ends. A nil task
// with a nil error means the poll timed out and the caller should loop.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	if q.redis == nil || q.listKey == "" {
		return nil, errors.New("validation queue is not configured")
	}

	values, err := q.redis.BRPop(ctx, timeout, q.listKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(values) < 2 {
		return nil, nil
	}

	var task Task
	if err := json.Unmarshal([]byte(values[1]), &task); err != nil {
		q.logger.Warn().Err(err).Msg("dropping malformed queue payload")
		return nil, nil
	}
	return &task, nil
}

// Listen subscribes to the NATS nudge subject so the local wake channel fires
// when another node enqueues work.
func (q *Queue) Listen(ctx context.Context) {
	if q.nats == nil || q.natsSubject == "" {
		return
	}

	sub, err := q.nats.Subscribe(q.natsSubject, func(_ *nats.Msg) {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	})
	if err != nil {
		q.logger.Error().Err(err).Msg("failed to subscribe to validation queue subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			q.logger.Warn().Err(err).Msg("failed to drain validation queue subscription")
		}
	}()
}

// Wake exposes the nudge channel for the worker loop.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}
