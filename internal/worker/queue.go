package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

const QueueHunts = "hunts"

// RunQueue enqueues planning runs for the asynq worker.
type RunQueue struct {
	client *asynq.Client
}

func NewRunQueue(client *asynq.Client) *RunQueue {
	return &RunQueue{client: client}
}

func (q *RunQueue) Enqueue(ctx context.Context, runID string) error {
	task, err := NewHuntTask(runID)
	if err != nil {
		return fmt.Errorf("build task: %w", err)
	}

	if _, err := q.client.EnqueueContext(ctx, task, asynq.Queue(QueueHunts)); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}

	logger(ctx).Info("hunt run enqueued", "run_id", runID)

	return nil
}
