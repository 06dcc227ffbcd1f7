package entity

// EstimateSet holds the per-estimator prices contributing to one
// ensemble estimate. It is transient: consumed by the pricing policy
// within a single call, never persisted.
type EstimateSet struct {
	Retrieval  float64 `json:"retrieval"`
	Specialist float64 `json:"specialist"`
	Learned    float64 `json:"learned"`
}
