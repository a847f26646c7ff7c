package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// ElevenLabsConfig configures the text-to-speech client. An empty APIKey
// disables the speak command.
type ElevenLabsConfig struct {
	APIKey       string        `env:"ELEVENLABS_API_KEY"`
	VoiceID      string        `env:"ELEVENLABS_VOICE_ID, default=hGb0Exk8cp4vQEnwolxa"`
	ModelID      string        `env:"ELEVENLABS_MODEL_ID, default=eleven_multilingual_v2"`
	OutputFormat string        `env:"ELEVENLABS_OUTPUT, default=mp3_44100_128"`
	BaseURL      string        `env:"ELEVENLABS_BASE_URL, default=https://api.elevenlabs.io"`
	Timeout      time.Duration `env:"ELEVENLABS_TIMEOUT, default=20s"`
}

func NewElevenLabsConfigFromEnv() (*ElevenLabsConfig, error) {
	var cfg ElevenLabsConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ElevenLabsConfig) Enabled() bool {
	return c.APIKey != ""
}
