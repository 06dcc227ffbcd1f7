package planner

import (
	"context"
	"fmt"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
)

const (
	defaultMaxCandidates     = 5
	defaultDiscountThreshold = 50.0
)

// DealSource yields candidate deals, never including excluded URLs.
type DealSource interface {
	Fetch(ctx context.Context, excluding map[string]struct{}) ([]entity.Deal, error)
}

// Pricer is the ensemble pricing policy.
type Pricer interface {
	Price(ctx context.Context, description string) (float64, error)
}

// Notifier delivers a human-readable alert for one opportunity.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// state of one planning run. The machine advances strictly forward:
// Scanning -> Pricing -> Selecting -> Notifying -> Done.
type state int

const (
	stateScanning state = iota
	statePricing
	stateSelecting
	stateNotifying
	stateDone
)

func (s state) String() string {
	switch s {
	case stateScanning:
		return "scanning"
	case statePricing:
		return "pricing"
	case stateSelecting:
		return "selecting"
	case stateNotifying:
		return "notifying"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Deterministic runs the fixed scan -> price -> select -> notify
// pipeline. Each Plan call is a fresh instance of the state machine;
// at most one notification per invocation.
type Deterministic struct {
	source            DealSource
	pricer            Pricer
	notifier          Notifier
	maxCandidates     int
	discountThreshold float64
}

func NewDeterministic(source DealSource, pricer Pricer, notifier Notifier) *Deterministic {
	return &Deterministic{
		source:            source,
		pricer:            pricer,
		notifier:          notifier,
		maxCandidates:     defaultMaxCandidates,
		discountThreshold: defaultDiscountThreshold,
	}
}

func (p *Deterministic) WithMaxCandidates(n int) *Deterministic {
	p.maxCandidates = n
	return p
}

func (p *Deterministic) WithDiscountThreshold(threshold float64) *Deterministic {
	p.discountThreshold = threshold
	return p
}

// Plan executes one run and returns the winning Opportunity, or nil
// when no candidate clears the discount threshold. A nil result with
// a nil error is the expected quiet outcome, not a failure.
func (p *Deterministic) Plan(ctx context.Context, excluding map[string]struct{}) (*entity.Opportunity, error) {
	run := &runState{state: stateScanning}

	for run.state != stateDone {
		if err := p.step(ctx, run, excluding); err != nil {
			if domain.HasCode(err, errcodes.NoDealsFound) {
				logger(ctx).Info("no deals found this run")
				return nil, nil
			}
			return nil, fmt.Errorf("planner %s: %w", run.state, err)
		}
	}

	return run.winner, nil
}

type runState struct {
	state         state
	candidates    []entity.Deal
	opportunities []entity.Opportunity
	winner        *entity.Opportunity
}

func (p *Deterministic) step(ctx context.Context, run *runState, excluding map[string]struct{}) error {
	switch run.state {
	case stateScanning:
		return p.scan(ctx, run, excluding)
	case statePricing:
		return p.price(ctx, run)
	case stateSelecting:
		return p.selectBest(ctx, run)
	case stateNotifying:
		return p.notify(ctx, run)
	default:
		return fmt.Errorf("unexpected state %s", run.state)
	}
}

func (p *Deterministic) scan(ctx context.Context, run *runState, excluding map[string]struct{}) error {
	deals, err := p.source.Fetch(ctx, excluding)
	if err != nil {
		return fmt.Errorf("fetch deals: %w", err)
	}

	if len(deals) == 0 {
		return domain.NewError(errcodes.NoDealsFound, "deal source yielded no candidates")
	}

	if len(deals) > p.maxCandidates {
		deals = deals[:p.maxCandidates]
	}

	logger(ctx).Info("scan finished", "candidates", len(deals))

	run.candidates = deals
	run.state = statePricing

	return nil
}

// price builds an Opportunity per candidate. A failure prices out one
// candidate only, never the whole run.
func (p *Deterministic) price(ctx context.Context, run *runState) error {
	for _, deal := range run.candidates {
		estimate, err := p.pricer.Price(ctx, deal.ProductDescription)
		if err != nil {
			logger(ctx).Warn("candidate dropped after pricing failure",
				"url", deal.URL,
				"error", err,
			)
			continue
		}

		run.opportunities = append(run.opportunities, entity.NewOpportunity(deal, estimate))
	}

	if len(run.opportunities) == 0 {
		return domain.NewError(errcodes.NoDealsFound, "every candidate failed pricing")
	}

	run.state = stateSelecting

	return nil
}

// selectBest picks the maximum discount; ties keep the earliest
// candidate (stable order).
func (p *Deterministic) selectBest(ctx context.Context, run *runState) error {
	best := run.opportunities[0]
	for _, opp := range run.opportunities[1:] {
		if opp.Discount > best.Discount {
			best = opp
		}
	}

	logger(ctx).Info("best candidate selected",
		"url", best.Deal.URL,
		"discount", best.Discount,
	)

	run.winner = &best
	run.state = stateNotifying

	return nil
}

func (p *Deterministic) notify(ctx context.Context, run *runState) error {
	defer func() { run.state = stateDone }()

	if run.winner.Discount <= p.discountThreshold {
		logger(ctx).Info("best discount below threshold, staying quiet",
			"discount", run.winner.Discount,
			"threshold", p.discountThreshold,
		)
		run.winner = nil
		return nil
	}

	message := FormatAlert(*run.winner)

	// Delivery failure does not void the run: the opportunity is still
	// returned so the caller records it and dedup holds next run.
	if err := p.notifier.Send(ctx, message); err != nil {
		logger(ctx).Error("notification delivery failed",
			"url", run.winner.Deal.URL,
			"error", err,
		)
	}

	return nil
}

// FormatAlert renders the one-line notification text for an opportunity.
func FormatAlert(opp entity.Opportunity) string {
	return fmt.Sprintf("Deal Alert! Price=$%.2f, Estimate=$%.2f, Discount=$%.2f : %s",
		opp.Deal.Price, opp.Estimate, opp.Discount, opp.Deal.URL)
}
