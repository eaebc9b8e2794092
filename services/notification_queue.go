package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
)

// TaskStatusEmail is enqueued once per updated abstract in queue mode.
const TaskStatusEmail = "abstract:status_email"

// NotificationQueue publishes status email jobs to Redis.
type NotificationQueue struct {
	client *asynq.Client
}

func NewNotificationQueue(client *asynq.Client) *NotificationQueue {
	return &NotificationQueue{client: client}
}

// NewStatusEmailTask wraps a job as an asynq task.
func NewStatusEmailTask(job NotificationJob) (*asynq.Task, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	// Status emails are never retried automatically.
	return asynq.NewTask(TaskStatusEmail, data, asynq.MaxRetry(0)), nil
}

func (q *NotificationQueue) EnqueueStatusEmail(ctx context.Context, job NotificationJob) error {
	task, err := NewStatusEmailTask(job)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue status email task: %w", err)
	}
	return nil
}

// JobDeliverer sends one job synchronously; *Dispatcher satisfies it.
type JobDeliverer interface {
	Deliver(ctx context.Context, job NotificationJob) error
}

// NotificationWorker is plugged into the asynq worker loop.
type NotificationWorker struct {
	deliverer JobDeliverer
}

func NewNotificationWorker(deliverer JobDeliverer) *NotificationWorker {
	return &NotificationWorker{deliverer: deliverer}
}

// Handler registers the status email handler.
func (w *NotificationWorker) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskStatusEmail, w.HandleStatusEmail)
	return mux
}

func (w *NotificationWorker) HandleStatusEmail(ctx context.Context, task *asynq.Task) error {
	var job NotificationJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := w.deliverer.Deliver(ctx, job); err != nil {
		config.Logger.Warn().
			Err(err).
			Str("request_id", job.RequestID).
			Int64("abstract_id", job.AbstractID).
			Msg("queued status email failed")
		return err
	}
	return nil
}
