package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

var ErrPostgresNotConfigured = errors.New("neither POSTGRES_URL nor POSTGRES_HOST is set")

// PostgresConfig holds the history database settings. URL, when set, wins
// over the individual fields.
type PostgresConfig struct {
	URL      string `env:"POSTGRES_URL"`
	Host     string `env:"POSTGRES_HOST"`
	Port     string `env:"POSTGRES_PORT, default=5432"`
	Username string `env:"POSTGRES_USERNAME, default=jukebox"`
	Password string `env:"POSTGRES_PASSWORD"`
	Database string `env:"POSTGRES_DATABASE, default=jukebox"`
	SSLMode  string `env:"POSTGRES_SSLMODE, default=disable"`
	MaxConns int32  `env:"POSTGRES_MAX_CONNS, default=4"`
}

func NewPostgresConfigFromEnv() (*PostgresConfig, error) {
	var cfg PostgresConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" && cfg.Host == "" {
		return nil, ErrPostgresNotConfigured
	}
	return &cfg, nil
}

// Target is the host and port for logs, never the credentials.
func (c *PostgresConfig) Target() string {
	if c.URL != "" {
		return "POSTGRES_URL"
	}
	return c.Host + ":" + c.Port
}

func (c *PostgresConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}
