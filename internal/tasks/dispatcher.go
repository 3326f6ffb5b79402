package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"carlink/market/internal/utils"
)

// Enqueuer is the part of *asynq.Client used for scheduling.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher schedules background work on the asynq queues.
type Dispatcher struct {
	client Enqueuer
	log    *zap.Logger
}

func NewDispatcher(client Enqueuer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{client: client, log: log}
}

func (d *Dispatcher) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}
	info, err := d.client.EnqueueContext(ctx, asynq.NewTask(taskType, b), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// an identical task is already pending
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}
	d.log.Debug("task enqueued", zap.String("type", taskType), zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	return nil
}

func (d *Dispatcher) EnqueueImageProcess(ctx context.Context, listingID utils.SixID, key string) error {
	return d.enqueue(ctx, TypeImageProcess,
		ImageTaskPayload{S3Key: key, ListingID: listingID.String()},
		asynq.Queue(QueueImages), asynq.MaxRetry(5), asynq.TaskID("image:"+key))
}

func (d *Dispatcher) EnqueueMatchGeneration(ctx context.Context, requestID utils.SixID) error {
	return d.enqueue(ctx, TypeMatchGenerate,
		MatchTaskPayload{RequestID: requestID.String()},
		asynq.Queue(QueueDefault), asynq.TaskID("match:"+requestID.String()))
}

func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailTaskPayload, opts ...asynq.Option) error {
	opts = append([]asynq.Option{asynq.Queue(QueueCritical)}, opts...)
	return d.enqueue(ctx, TypeEmailDelivery, payload, opts...)
}
