package pricing

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
)

// Prompt scaffolding some sources leave around the product text.
// All estimators must see the same canonical description.
const (
	questionPreamble = "How much does this cost to the nearest dollar?\n\n"
	priceSuffix      = "\n\nPrice is $"
)

// Estimator is any black-box description -> price function.
type Estimator interface {
	Name() string
	Estimate(ctx context.Context, description string) (float64, error)
}

// Ensemble combines three heterogeneous estimators into one price
// using a band-keyed weighting table.
type Ensemble struct {
	retrieval  Estimator
	specialist Estimator
	learned    Estimator
	bands      []Band
	rule       ReferenceRule
}

func NewEnsemble(retrieval, specialist, learned Estimator) *Ensemble {
	return &Ensemble{
		retrieval:  retrieval,
		specialist: specialist,
		learned:    learned,
		bands:      DefaultBands(),
		rule:       ReferenceRetrieval,
	}
}

func (e *Ensemble) WithBands(bands []Band) *Ensemble {
	e.bands = bands
	return e
}

func (e *Ensemble) WithReferenceRule(rule ReferenceRule) *Ensemble {
	e.rule = rule
	return e
}

// Normalize strips prompt scaffolding from a description.
func Normalize(description string) string {
	out := strings.TrimPrefix(description, questionPreamble)
	if idx := strings.Index(out, priceSuffix); idx >= 0 {
		out = out[:idx]
	}
	return strings.TrimSpace(out)
}

// Price returns the combined estimate for a description, rounded to
// currency precision. Deterministic given fixed estimator outputs.
func (e *Ensemble) Price(ctx context.Context, description string) (float64, error) {
	set, err := e.collect(ctx, Normalize(description))
	if err != nil {
		return 0, err
	}

	reference, err := e.rule.Apply(set)
	if err != nil {
		return 0, fmt.Errorf("reference price: %w", err)
	}

	weights, err := WeightsFor(e.bands, reference)
	if err != nil {
		return 0, fmt.Errorf("select band: %w", err)
	}

	combined := entity.Round2(weights.Apply(set))

	logger(ctx).Debug("ensemble priced description",
		"reference", reference,
		"retrieval", set.Retrieval,
		"specialist", set.Specialist,
		"learned", set.Learned,
		"combined", combined,
	)

	return combined, nil
}

// collect fans the three estimator calls out concurrently and joins
// their results. A failure in any one fails the whole set.
func (e *Ensemble) collect(ctx context.Context, description string) (entity.EstimateSet, error) {
	var set entity.EstimateSet

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.callEstimator(gCtx, e.retrieval, description, &set.Retrieval)
	})
	g.Go(func() error {
		return e.callEstimator(gCtx, e.specialist, description, &set.Specialist)
	})
	g.Go(func() error {
		return e.callEstimator(gCtx, e.learned, description, &set.Learned)
	})

	if err := g.Wait(); err != nil {
		return entity.EstimateSet{}, err
	}

	return set, nil
}

func (e *Ensemble) callEstimator(ctx context.Context, est Estimator, description string, out *float64) error {
	price, err := est.Estimate(ctx, description)
	if err != nil {
		return domain.WrapError(err, errcodes.EstimatorFailure,
			fmt.Sprintf("estimator %s", est.Name()))
	}
	if price < 0 {
		return domain.NewError(errcodes.EstimatorFailure,
			fmt.Sprintf("estimator %s returned negative price %.2f", est.Name(), price))
	}

	*out = price

	return nil
}
