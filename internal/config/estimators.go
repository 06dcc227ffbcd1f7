package config

import "time"

// Estimators points at the three remote pricing services.
type Estimators struct {
	RetrievalURL  string        `env:"ESTIMATOR_RETRIEVAL_URL,required"`
	SpecialistURL string        `env:"ESTIMATOR_SPECIALIST_URL,required"`
	LearnedURL    string        `env:"ESTIMATOR_LEARNED_URL,required"`
	Timeout       time.Duration `env:"ESTIMATOR_TIMEOUT" envDefault:"30s"`
}
