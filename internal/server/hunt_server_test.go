package server

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/internal/worker"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
	"github.com/mightyoctopus/worthbrain/pkg/rest"
	"github.com/mightyoctopus/worthbrain/pkg/tests"
)

type memoryFake struct {
	log []entity.Opportunity
}

func (m *memoryFake) Load(_ context.Context) ([]entity.Opportunity, error) {
	return m.log, nil
}

type runStoreFake struct {
	runs    map[string]worker.Run
	created []string
}

func (r *runStoreFake) Create(_ context.Context, id string) error {
	r.created = append(r.created, id)
	return nil
}

func (r *runStoreFake) Get(_ context.Context, id string) (worker.Run, error) {
	run, ok := r.runs[id]
	if !ok {
		return worker.Run{}, domain.NewError(errcodes.RunNotFound, "run not found")
	}
	return run, nil
}

type enqueuerFake struct {
	enqueued []string
}

func (e *enqueuerFake) Enqueue(_ context.Context, runID string) error {
	e.enqueued = append(e.enqueued, runID)
	return nil
}

type pricerFake struct {
	price float64
	err   error
}

func (p *pricerFake) Price(_ context.Context, _ string) (float64, error) {
	return p.price, p.err
}

func newTestAPI(t *testing.T, memory *memoryFake, runs *runStoreFake, enqueuer *enqueuerFake) tests.APIClient {
	t.Helper()
	return newTestAPIWithPricer(t, memory, runs, enqueuer, &pricerFake{})
}

func newTestAPIWithPricer(
	t *testing.T,
	memory *memoryFake,
	runs *runStoreFake,
	enqueuer *enqueuerFake,
	pricer *pricerFake,
) tests.APIClient {
	t.Helper()

	router := chi.NewRouter()
	NewServer(NewHuntServer(memory, runs, enqueuer, pricer)).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return tests.NewAPIClient(srv.URL, srv.Client())
}

func TestGetV1Opportunities(t *testing.T) {
	memory := &memoryFake{log: []entity.Opportunity{
		entity.NewOpportunity(entity.Deal{
			ProductDescription: "espresso machine",
			Price:              50,
			URL:                "https://deals.example/espresso",
		}, 127),
	}}

	api := newTestAPI(t, memory, &runStoreFake{}, &enqueuerFake{})

	var got []rest.Opportunity
	resp, err := api.Get(context.Background(), "/v1/opportunities", nil, &got, nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Len(t, got, 1)
	require.Equal(t, "https://deals.example/espresso", got[0].Deal.URL)
	require.InDelta(t, 77.0, got[0].Discount, 1e-9)
}

func TestGetV1OpportunitiesEmpty(t *testing.T) {
	api := newTestAPI(t, &memoryFake{}, &runStoreFake{}, &enqueuerFake{})

	var got []rest.Opportunity
	resp, err := api.Get(context.Background(), "/v1/opportunities", nil, &got, nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Empty(t, got)
}

func TestPostV1RunsEnqueues(t *testing.T) {
	runs := &runStoreFake{}
	enqueuer := &enqueuerFake{}

	api := newTestAPI(t, &memoryFake{}, runs, enqueuer)

	var got rest.Run
	resp, err := api.Post(context.Background(), "/v1/runs", nil, struct{}{}, &got, nil)
	require.NoError(t, err)
	require.Equal(t, 202, resp.StatusCode)
	require.NotEmpty(t, got.ID)
	require.Equal(t, string(worker.RunStatusQueued), got.Status)

	require.Equal(t, []string{got.ID}, runs.created)
	require.Equal(t, []string{got.ID}, enqueuer.enqueued)
}

func TestPostV1Estimates(t *testing.T) {
	api := newTestAPIWithPricer(t, &memoryFake{}, &runStoreFake{}, &enqueuerFake{}, &pricerFake{price: 127.5})

	var got rest.Estimate
	resp, err := api.Post(context.Background(), "/v1/estimates", nil, rest.EstimateRequest{
		Description: "espresso machine",
	}, &got, nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "espresso machine", got.Description)
	require.InDelta(t, 127.5, got.Estimate, 1e-9)
}

func TestPostV1EstimatesRejectsEmptyBody(t *testing.T) {
	api := newTestAPI(t, &memoryFake{}, &runStoreFake{}, &enqueuerFake{})

	var errBody rest.Error
	resp, err := api.Post(context.Background(), "/v1/estimates", nil, struct{}{}, nil, &errBody)
	require.NoError(t, err)
	require.Equal(t, 400, resp.StatusCode)
}

func TestGetV1Run(t *testing.T) {
	opp := entity.NewOpportunity(entity.Deal{
		ProductDescription: "espresso machine",
		Price:              50,
		URL:                "https://deals.example/espresso",
	}, 127)

	runs := &runStoreFake{runs: map[string]worker.Run{
		"run-1": {
			ID:     "run-1",
			Status: worker.RunStatusDone,
			Logs:   []string{"run started", "run finished"},
			Result: &opp,
		},
	}}

	api := newTestAPI(t, &memoryFake{}, runs, &enqueuerFake{})

	var got rest.Run
	resp, err := api.Get(context.Background(), "/v1/runs/run-1", nil, &got, nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "done", got.Status)
	require.Len(t, got.Logs, 2)
	require.NotNil(t, got.Result)
	require.Equal(t, "https://deals.example/espresso", got.Result.Deal.URL)
}

func TestGetV1RunNotFound(t *testing.T) {
	api := newTestAPI(t, &memoryFake{}, &runStoreFake{}, &enqueuerFake{})

	var errBody rest.Error
	resp, err := api.Get(context.Background(), "/v1/runs/nope", nil, nil, &errBody)
	require.NoError(t, err)
	require.Equal(t, 404, resp.StatusCode)
	require.Equal(t, rest.ErrorCode("RunNotFound"), errBody.Code)
}
