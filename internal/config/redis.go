package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, required"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`

	BlocklistKey  string `env:"REDIS_BLOCKLIST_KEY, default=jukebox_blocklist"`
	EventStream   string `env:"REDIS_EVENT_STREAM, default=playback_events"`
	ConsumerGroup string `env:"REDIS_CONSUMER_GROUP, default=playback_history_group"`
}

func NewRedisConfigFromEnv() (*RedisConfig, error) {
	var cfg RedisConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}
	return &cfg, nil
}
