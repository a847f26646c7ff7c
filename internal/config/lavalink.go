package config

import (
	"context"
	"fmt"

	"github.com/glizzus/jukebox/internal/schedule"
	"github.com/sethvargo/go-envconfig"
)

// LavalinkConfig holds the raw node settings. Node parsing and URL
// normalization live in the lavalink package.
type LavalinkConfig struct {
	Enabled       bool   `env:"LAVALINK_ENABLED, default=false"`
	Nodes         string `env:"LAVALINK_NODES"`
	URL           string `env:"LAVALINK_URL"`
	Host          string `env:"LAVALINK_HOST"`
	Port          int    `env:"LAVALINK_PORT, default=2333"`
	Password      string `env:"LAVALINK_PASSWORD, default=youshallnotpass"`
	Secure        bool   `env:"LAVALINK_SECURE, default=false"`
	ReconnectCron string `env:"LAVALINK_RECONNECT_CRON, default=*/5 * * * * * *"`
	ClientName    string `env:"LAVALINK_CLIENT_NAME, default=jukebox/1.0"`
}

func NewLavalinkConfigFromEnv() (*LavalinkConfig, error) {
	var cfg LavalinkConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if err := schedule.ValidateCron(cfg.ReconnectCron); err != nil {
		return nil, fmt.Errorf("LAVALINK_RECONNECT_CRON: %w", err)
	}
	return &cfg, nil
}
