package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// TranslateConfig configures the translate command's backend.
type TranslateConfig struct {
	Enabled bool          `env:"TRANSLATE_ENABLED, default=true"`
	BaseURL string        `env:"TRANSLATE_BASE_URL, default=https://translate.googleapis.com"`
	Timeout time.Duration `env:"TRANSLATE_TIMEOUT, default=10s"`
}

func NewTranslateConfigFromEnv() (*TranslateConfig, error) {
	var cfg TranslateConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
