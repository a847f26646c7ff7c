package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

type DiscordConfig struct {
	Token   string `env:"DISCORD_TOKEN, required"`
	Prefix  string `env:"PREFIX, default=!"`
	OwnerID string `env:"BOT_OWNER_ID"`
}

func NewDiscordConfigFromEnv() (*DiscordConfig, error) {
	var cfg DiscordConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN must not be blank")
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		return nil, fmt.Errorf("PREFIX must not be blank")
	}

	return &cfg, nil
}
