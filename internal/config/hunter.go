package config

import "time"

// Hunter tunes the planning pipeline.
type Hunter struct {
	// Planner mode: "deterministic" or "autonomous".
	Planner string `env:"HUNTER_PLANNER" envDefault:"deterministic"`

	DiscountThreshold float64 `env:"HUNTER_DISCOUNT_THRESHOLD" envDefault:"50"`
	MaxCandidates     int     `env:"HUNTER_MAX_CANDIDATES" envDefault:"5"`
	MaxToolRounds     int     `env:"HUNTER_MAX_TOOL_ROUNDS" envDefault:"12"`

	// Interval between periodic runs; 0 disables the periodic mode and
	// leaves runs to the HTTP API.
	Interval time.Duration `env:"HUNTER_INTERVAL" envDefault:"0"`

	MemoryFile string   `env:"HUNTER_MEMORY_FILE" envDefault:"memory.json"`
	Feeds      []string `env:"HUNTER_FEEDS" envSeparator:","`
}
