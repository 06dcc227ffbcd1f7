package pricing

import (
	"fmt"
	"math"

	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
)

// Weights is the contribution of each estimator to the combined price.
// A valid triple sums to 1.0.
type Weights struct {
	Retrieval  float64
	Specialist float64
	Learned    float64
}

func (w Weights) Sum() float64 {
	return w.Retrieval + w.Specialist + w.Learned
}

// Apply computes the weighted sum over one estimate set.
func (w Weights) Apply(set entity.EstimateSet) float64 {
	return w.Retrieval*set.Retrieval + w.Specialist*set.Specialist + w.Learned*set.Learned
}

// Band maps reference prices below Upper to a weight triple.
// Bands are evaluated in ascending order, first match wins.
type Band struct {
	Upper   float64 // exclusive; +Inf for the terminal band
	Weights Weights
}

// DefaultBands is the production weighting table. The learned
// estimator is the most volatile and only contributes in its
// reliable mid range.
func DefaultBands() []Band {
	return []Band{
		{Upper: 100, Weights: Weights{Retrieval: 0.70, Specialist: 0.30, Learned: 0}},
		{Upper: 200, Weights: Weights{Retrieval: 0.85, Specialist: 0.10, Learned: 0.05}},
		{Upper: 300, Weights: Weights{Retrieval: 0.70, Specialist: 0.20, Learned: 0.10}},
		{Upper: math.Inf(1), Weights: Weights{Retrieval: 0.90, Specialist: 0.10, Learned: 0}},
	}
}

// WeightsFor selects the weight triple for a reference price.
func WeightsFor(bands []Band, reference float64) (Weights, error) {
	for _, b := range bands {
		if reference < b.Upper {
			return b.Weights, nil
		}
	}
	return Weights{}, fmt.Errorf("no band for reference price %.2f", reference)
}

// ReferenceRule derives the coarse reference price used for band
// selection from the raw estimate set.
type ReferenceRule string

const (
	// ReferenceMean averages the specialist and retrieval estimates.
	ReferenceMean ReferenceRule = "mean"
	// ReferenceBlend leans on retrieval with a small specialist share.
	ReferenceBlend ReferenceRule = "blend"
	// ReferenceRetrieval uses the retrieval estimate alone. Production
	// default: keeps the volatile learned estimator out of the tie-break.
	ReferenceRetrieval ReferenceRule = "retrieval"
)

func (r ReferenceRule) Apply(set entity.EstimateSet) (float64, error) {
	switch r {
	case ReferenceMean:
		return (set.Specialist + set.Retrieval) / 2, nil
	case ReferenceBlend:
		return 0.2*set.Specialist + 0.8*set.Retrieval, nil
	case ReferenceRetrieval:
		return set.Retrieval, nil
	default:
		return 0, fmt.Errorf("unknown reference rule %q", string(r))
	}
}
