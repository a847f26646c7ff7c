package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	TransportVoice    = "voice"
	TransportLavalink = "lavalink"
)

// PlayerConfig tunes the per-guild playback queues.
type PlayerConfig struct {
	Transport              string        `env:"PLAYER_TRANSPORT, default=voice"`
	IdleTimeout            time.Duration `env:"PLAYER_IDLE_TIMEOUT, default=60s"`
	ConnectTimeout         time.Duration `env:"PLAYER_CONNECT_TIMEOUT, default=20s"`
	MaxTrackRetries        int           `env:"PLAYER_MAX_TRACK_RETRIES, default=2"`
	MaxConsecutiveFailures int           `env:"PLAYER_MAX_CONSECUTIVE_FAILURES, default=5"`
	AnnounceNowPlaying     bool          `env:"PLAYER_ANNOUNCE_NOW_PLAYING, default=true"`
}

func NewPlayerConfigFromEnv() (*PlayerConfig, error) {
	var cfg PlayerConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate()
}

func (c *PlayerConfig) Validate() error {
	switch c.Transport {
	case TransportVoice, TransportLavalink:
	default:
		return fmt.Errorf("unknown PLAYER_TRANSPORT %q (want %q or %q)", c.Transport, TransportVoice, TransportLavalink)
	}
	if c.IdleTimeout <= 0 || c.ConnectTimeout <= 0 {
		return fmt.Errorf("player timeouts must be positive")
	}
	if c.MaxTrackRetries < 0 || c.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("invalid retry policy: retries=%d failures=%d", c.MaxTrackRetries, c.MaxConsecutiveFailures)
	}
	return nil
}
