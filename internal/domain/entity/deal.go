package entity

import "math"

// Deal is a bargain candidate as scraped from a deal source.
type Deal struct {
	ProductDescription string  `json:"product_description"`
	Price              float64 `json:"price"`
	URL                string  `json:"url"`
}

// Opportunity is a deal together with its estimated true value.
// Discount is always recomputed from Estimate and Deal.Price, never
// taken from the outside.
type Opportunity struct {
	Deal     Deal    `json:"deal"`
	Estimate float64 `json:"estimate"`
	Discount float64 `json:"discount"`
}

func NewOpportunity(deal Deal, estimate float64) Opportunity {
	return Opportunity{
		Deal:     deal,
		Estimate: estimate,
		Discount: Round2(estimate - deal.Price),
	}
}

// Round2 rounds to two decimal places, the precision used for all
// monetary values.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
