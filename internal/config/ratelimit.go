package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type RateLimitConfig struct {
	Every time.Duration `env:"COMMAND_RATE_EVERY, default=2s"`
	Burst int           `env:"COMMAND_RATE_BURST, default=3"`
}

func NewRateLimitConfigFromEnv() (*RateLimitConfig, error) {
	var cfg RateLimitConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
