package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
)

type fakeSource struct {
	deals []entity.Deal
	err   error

	gotExcluding map[string]struct{}
}

func (f *fakeSource) Fetch(_ context.Context, excluding map[string]struct{}) ([]entity.Deal, error) {
	f.gotExcluding = excluding

	if f.err != nil {
		return nil, f.err
	}

	var out []entity.Deal
	for _, d := range f.deals {
		if _, skip := excluding[d.URL]; skip {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type fakePricer struct {
	prices map[string]float64
	errFor map[string]error
}

func (f *fakePricer) Price(_ context.Context, description string) (float64, error) {
	if err, ok := f.errFor[description]; ok {
		return 0, err
	}
	return f.prices[description], nil
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, message string) error {
	f.sent = append(f.sent, message)
	return f.err
}

func deal(description string, price float64, url string) entity.Deal {
	return entity.Deal{ProductDescription: description, Price: price, URL: url}
}

func TestPlanNotifiesAboveThreshold(t *testing.T) {
	source := &fakeSource{deals: []entity.Deal{
		deal("espresso machine", 50, "https://deals.example/espresso"),
		deal("office chair", 90, "https://deals.example/chair"),
	}}
	pricer := &fakePricer{prices: map[string]float64{
		"espresso machine": 127,
		"office chair":     110,
	}}
	notifier := &fakeNotifier{}

	p := NewDeterministic(source, pricer, notifier)

	opp, err := p.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, opp)
	require.Equal(t, "https://deals.example/espresso", opp.Deal.URL)
	require.InDelta(t, 77.0, opp.Discount, 1e-9)
	require.Len(t, notifier.sent, 1)
	require.Contains(t, notifier.sent[0], "https://deals.example/espresso")
}

func TestPlanStaysQuietBelowThreshold(t *testing.T) {
	source := &fakeSource{deals: []entity.Deal{
		deal("espresso machine", 80, "https://deals.example/espresso"),
	}}
	pricer := &fakePricer{prices: map[string]float64{"espresso machine": 127}}
	notifier := &fakeNotifier{}

	p := NewDeterministic(source, pricer, notifier)

	opp, err := p.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, opp, "discount 47 is below the 50 threshold")
	require.Empty(t, notifier.sent)
}

func TestPlanNoDealsIsQuietSuccess(t *testing.T) {
	source := &fakeSource{}
	notifier := &fakeNotifier{}

	p := NewDeterministic(source, &fakePricer{}, notifier)

	opp, err := p.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, opp)
	require.Empty(t, notifier.sent)
}

func TestPlanSourceErrorPropagates(t *testing.T) {
	source := &fakeSource{err: errors.New("feed unreachable")}

	p := NewDeterministic(source, &fakePricer{}, &fakeNotifier{})

	_, err := p.Plan(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "feed unreachable")
}

func TestPlanPassesExclusionsToSource(t *testing.T) {
	source := &fakeSource{deals: []entity.Deal{
		deal("seen before", 10, "https://deals.example/old"),
		deal("fresh", 10, "https://deals.example/new"),
	}}
	pricer := &fakePricer{prices: map[string]float64{"fresh": 200, "seen before": 200}}
	notifier := &fakeNotifier{}

	p := NewDeterministic(source, pricer, notifier)

	excluding := map[string]struct{}{"https://deals.example/old": {}}

	opp, err := p.Plan(context.Background(), excluding)
	require.NoError(t, err)
	require.NotNil(t, opp)
	require.Equal(t, "https://deals.example/new", opp.Deal.URL)
	require.Equal(t, excluding, source.gotExcluding)
}

func TestPlanCapsCandidates(t *testing.T) {
	var deals []entity.Deal
	prices := map[string]float64{}
	for _, name := range []string{"a", "b", "c", "d"} {
		deals = append(deals, deal(name, 10, "https://deals.example/"+name))
		prices[name] = 20 // below threshold, we only care about pricing calls
	}
	source := &fakeSource{deals: deals}
	pricer := &countingPricer{inner: &fakePricer{prices: prices}}

	p := NewDeterministic(source, pricer, &fakeNotifier{}).WithMaxCandidates(2)

	_, err := p.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, pricer.calls)
}

type countingPricer struct {
	inner *fakePricer
	calls int
}

func (c *countingPricer) Price(ctx context.Context, description string) (float64, error) {
	c.calls++
	return c.inner.Price(ctx, description)
}

func TestPlanIsolatesPerCandidatePricingFailure(t *testing.T) {
	source := &fakeSource{deals: []entity.Deal{
		deal("broken", 10, "https://deals.example/broken"),
		deal("good", 40, "https://deals.example/good"),
	}}
	pricer := &fakePricer{
		prices: map[string]float64{"good": 100},
		errFor: map[string]error{"broken": errors.New("estimator offline")},
	}
	notifier := &fakeNotifier{}

	p := NewDeterministic(source, pricer, notifier)

	opp, err := p.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, opp)
	require.Equal(t, "https://deals.example/good", opp.Deal.URL)
}

func TestPlanSelectsStableOnTies(t *testing.T) {
	source := &fakeSource{deals: []entity.Deal{
		deal("first", 10, "https://deals.example/first"),
		deal("second", 10, "https://deals.example/second"),
	}}
	pricer := &fakePricer{prices: map[string]float64{"first": 100, "second": 100}}
	notifier := &fakeNotifier{}

	p := NewDeterministic(source, pricer, notifier)

	opp, err := p.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, opp)
	require.Equal(t, "https://deals.example/first", opp.Deal.URL)
}

func TestPlanReturnsOpportunityOnDeliveryFailure(t *testing.T) {
	source := &fakeSource{deals: []entity.Deal{
		deal("espresso machine", 50, "https://deals.example/espresso"),
	}}
	pricer := &fakePricer{prices: map[string]float64{"espresso machine": 127}}
	notifier := &fakeNotifier{err: errors.New("pushover 500")}

	p := NewDeterministic(source, pricer, notifier)

	opp, err := p.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, opp, "opportunity is kept so dedup holds next run")
}
