package config

import (
	"context"
	"log/slog"

	"github.com/sethvargo/go-envconfig"
)

type LogConfig struct {
	Level slog.Level `env:"LOG_LEVEL, default=info"`
}

func NewLogConfigFromEnv() (*LogConfig, error) {
	var cfg LogConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
