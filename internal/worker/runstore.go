package worker

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

const (
	runTTL     = 24 * time.Hour
	maxRunLogs = 200
)

type RunStatus string

const (
	RunStatusQueued  RunStatus = "queued"
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
)

// Run is the observable state of one planning run.
type Run struct {
	ID     string
	Status RunStatus
	Logs   []string
	Result *entity.Opportunity
}

// RunStore keeps run state in redis so the HTTP surface can poll runs
// executed by the queue worker.
type RunStore struct {
	client *redis.Client
}

func NewRunStore(client *redis.Client) *RunStore {
	return &RunStore{client: client}
}

func runKey(id, field string) string {
	return "hunt:run:" + id + ":" + field
}

// Create registers a freshly enqueued run.
func (s *RunStore) Create(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, RunStatusQueued)
}

func (s *RunStore) SetStatus(ctx context.Context, id string, status RunStatus) error {
	if err := s.client.Set(ctx, runKey(id, "status"), string(status), runTTL).Err(); err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailure, "set run status")
	}
	return nil
}

// AppendLog adds one progress line, keeping only the newest entries.
func (s *RunStore) AppendLog(ctx context.Context, id, line string) error {
	key := runKey(id, "logs")

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, line)
	pipe.LTrim(ctx, key, -maxRunLogs, -1)
	pipe.Expire(ctx, key, runTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailure, "append run log")
	}

	return nil
}

func (s *RunStore) SetResult(ctx context.Context, id string, opp entity.Opportunity) error {
	data, err := json.Marshal(opp)
	if err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailure, "serialize run result")
	}

	if err := s.client.Set(ctx, runKey(id, "result"), data, runTTL).Err(); err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailure, "set run result")
	}

	return nil
}

// Get returns the run state, or RunNotFound for unknown or expired ids.
func (s *RunStore) Get(ctx context.Context, id string) (Run, error) {
	status, err := s.client.Get(ctx, runKey(id, "status")).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Run{}, domain.NewError(errcodes.RunNotFound, "run not found")
		}
		return Run{}, domain.WrapError(err, errcodes.PersistenceFailure, "get run status")
	}

	run := Run{
		ID:     id,
		Status: RunStatus(status),
	}

	logs, err := s.client.LRange(ctx, runKey(id, "logs"), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Run{}, domain.WrapError(err, errcodes.PersistenceFailure, "get run logs")
	}
	run.Logs = logs

	data, err := s.client.Get(ctx, runKey(id, "result")).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return Run{}, domain.WrapError(err, errcodes.PersistenceFailure, "get run result")
	default:
		var opp entity.Opportunity
		if err := json.Unmarshal(data, &opp); err != nil {
			return Run{}, domain.WrapError(err, errcodes.PersistenceFailure, "parse run result")
		}
		run.Result = &opp
	}

	return run, nil
}
