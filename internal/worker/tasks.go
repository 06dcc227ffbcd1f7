package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

const TaskTypeHuntRun = "hunt:run"

type huntTaskPayload struct {
	RunID string `json:"run_id"`
}

// NewHuntTask builds the queue task for one planning run.
func NewHuntTask(runID string) (*asynq.Task, error) {
	payload, err := json.Marshal(huntTaskPayload{RunID: runID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return asynq.NewTask(TaskTypeHuntRun, payload), nil
}

// HuntHandler executes queued planning runs and mirrors their progress
// into the run store for the HTTP surface to poll.
type HuntHandler struct {
	hunter *Hunter
	store  *RunStore
}

func NewHuntHandler(hunter *Hunter, store *RunStore) *HuntHandler {
	return &HuntHandler{
		hunter: hunter,
		store:  store,
	}
}

func (h *HuntHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload huntTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.store.SetStatus(ctx, payload.RunID, RunStatusRunning); err != nil {
		logger(ctx).Error("failed to mark run running", "run_id", payload.RunID, "error", err)
	}

	done := make(chan struct{})
	drained := make(chan struct{})

	go h.drainLogs(ctx, payload.RunID, done, drained)

	opp, runErr := h.hunter.RunOnce(ctx)

	close(done)
	<-drained

	if runErr != nil {
		if err := h.store.SetStatus(ctx, payload.RunID, RunStatusFailed); err != nil {
			logger(ctx).Error("failed to mark run failed", "run_id", payload.RunID, "error", err)
		}
		return fmt.Errorf("hunt run %s: %w", payload.RunID, runErr)
	}

	if opp != nil {
		if err := h.store.SetResult(ctx, payload.RunID, *opp); err != nil {
			logger(ctx).Error("failed to store run result", "run_id", payload.RunID, "error", err)
		}
	}

	if err := h.store.SetStatus(ctx, payload.RunID, RunStatusDone); err != nil {
		logger(ctx).Error("failed to mark run done", "run_id", payload.RunID, "error", err)
	}

	return nil
}

// drainLogs mirrors hunter progress lines into the run store until
// the run ends, then flushes whatever is still buffered.
func (h *HuntHandler) drainLogs(ctx context.Context, runID string, done <-chan struct{}, drained chan<- struct{}) {
	defer close(drained)

	appendLine := func(line string) {
		if err := h.store.AppendLog(ctx, runID, line); err != nil {
			logger(ctx).Error("failed to append run log", "run_id", runID, "error", err)
		}
	}

	for {
		select {
		case line := <-h.hunter.Logs():
			appendLine(line)
		case <-done:
			for {
				select {
				case line := <-h.hunter.Logs():
					appendLine(line)
				default:
					return
				}
			}
		}
	}
}
