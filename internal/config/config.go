package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server     Server
	OpenAI     OpenAI
	Estimators Estimators
	Notifier   Notifier
	Hunter     Hunter
	Postgres   Postgres
	Redis      Redis
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	return config, nil
}
