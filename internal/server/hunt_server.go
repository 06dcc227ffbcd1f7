package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/internal/worker"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
	"github.com/mightyoctopus/worthbrain/pkg/httpx/reply"
	"github.com/mightyoctopus/worthbrain/pkg/httpx/req"
	"github.com/mightyoctopus/worthbrain/pkg/lox"
	"github.com/mightyoctopus/worthbrain/pkg/rest"
)

type opportunityLog interface {
	Load(ctx context.Context) ([]entity.Opportunity, error)
}

type runStore interface {
	Create(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (worker.Run, error)
}

type runEnqueuer interface {
	Enqueue(ctx context.Context, runID string) error
}

type pricer interface {
	Price(ctx context.Context, description string) (float64, error)
}

// HuntServer exposes the opportunity history, the planning runs and
// ad-hoc price estimates.
type HuntServer struct {
	memory   opportunityLog
	runs     runStore
	enqueuer runEnqueuer
	pricer   pricer
}

func NewHuntServer(memory opportunityLog, runs runStore, enqueuer runEnqueuer, pricer pricer) HuntServer {
	return HuntServer{
		memory:   memory,
		runs:     runs,
		enqueuer: enqueuer,
		pricer:   pricer,
	}
}

func (s HuntServer) getV1Opportunities(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	opportunities, err := s.memory.Load(ctx)
	if err != nil {
		return fmt.Errorf("memory.Load: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, lox.Map(opportunities, newRESTOpportunity))

	return nil
}

func (s HuntServer) postV1Runs(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	runID := xid.New().String()

	if err := s.runs.Create(ctx, runID); err != nil {
		return fmt.Errorf("runs.Create: %w", err)
	}

	if err := s.enqueuer.Enqueue(ctx, runID); err != nil {
		return fmt.Errorf("enqueuer.Enqueue: %w", err)
	}

	reply.JSON(ctx, w, http.StatusAccepted, rest.Run{
		ID:     runID,
		Status: string(worker.RunStatusQueued),
	})

	return nil
}

func (s HuntServer) postV1Estimates(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.EstimateRequest
	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	estimate, err := s.pricer.Price(ctx, request.Description)
	if err != nil {
		return fmt.Errorf("pricer.Price: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.Estimate{
		Description: request.Description,
		Estimate:    estimate,
	})

	return nil
}

func (s HuntServer) getV1Run(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	runID := chi.URLParam(r, "id")

	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		if domain.HasCode(err, errcodes.RunNotFound) {
			reply.JSON(ctx, w, http.StatusNotFound, rest.Error{
				Code:    rest.ErrorCode(errcodes.RunNotFound.String()),
				Message: "run not found",
			})
			return nil
		}
		return fmt.Errorf("runs.Get: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTRun(run))

	return nil
}
