package server

import (
	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/internal/worker"
	"github.com/mightyoctopus/worthbrain/pkg/rest"
)

func newRESTOpportunity(opp entity.Opportunity) rest.Opportunity {
	return rest.Opportunity{
		Deal: rest.Deal{
			ProductDescription: opp.Deal.ProductDescription,
			Price:              opp.Deal.Price,
			URL:                opp.Deal.URL,
		},
		Estimate: opp.Estimate,
		Discount: opp.Discount,
	}
}

func newRESTRun(run worker.Run) rest.Run {
	out := rest.Run{
		ID:     run.ID,
		Status: string(run.Status),
		Logs:   run.Logs,
	}

	if run.Result != nil {
		result := newRESTOpportunity(*run.Result)
		out.Result = &result
	}

	return out
}
