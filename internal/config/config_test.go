package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/glizzus/jukebox/internal/config"
	"github.com/google/go-cmp/cmp"
)

func TestNewPlayerConfigFromEnvDefaults(t *testing.T) {
	cfg, err := config.NewPlayerConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &config.PlayerConfig{
		Transport:              config.TransportVoice,
		IdleTimeout:            60 * time.Second,
		ConnectTimeout:         20 * time.Second,
		MaxTrackRetries:        2,
		MaxConsecutiveFailures: 5,
		AnnounceNowPlaying:     true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("NewPlayerConfigFromEnv() mismatch (-want +got):\n%s", diff)
	}
}

func TestPlayerConfigValidate(t *testing.T) {
	tc := []struct {
		name string
		cfg  config.PlayerConfig
		err  bool
	}{
		{
			name: "lavalink transport is accepted",
			cfg:  config.PlayerConfig{Transport: config.TransportLavalink, IdleTimeout: time.Second, ConnectTimeout: time.Second, MaxConsecutiveFailures: 1},
		},
		{
			name: "unknown transport is rejected",
			cfg:  config.PlayerConfig{Transport: "carrier-pigeon", IdleTimeout: time.Second, ConnectTimeout: time.Second, MaxConsecutiveFailures: 1},
			err:  true,
		},
		{
			name: "zero idle timeout is rejected",
			cfg:  config.PlayerConfig{Transport: config.TransportVoice, ConnectTimeout: time.Second, MaxConsecutiveFailures: 1},
			err:  true,
		},
		{
			name: "circuit breaker needs at least one failure",
			cfg:  config.PlayerConfig{Transport: config.TransportVoice, IdleTimeout: time.Second, ConnectTimeout: time.Second},
			err:  true,
		},
	}

	for _, test := range tc {
		t.Run(test.name, func(t *testing.T) {
			err := test.cfg.Validate()
			if test.err && err == nil {
				t.Errorf("expected error but got none")
			}
			if !test.err && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewDiscordConfigFromEnv(t *testing.T) {
	t.Run("token is required", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "")
		if _, err := config.NewDiscordConfigFromEnv(); err == nil {
			t.Errorf("expected error without DISCORD_TOKEN")
		}
	})

	t.Run("blank token is rejected", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "   ")
		if _, err := config.NewDiscordConfigFromEnv(); err == nil {
			t.Errorf("expected error with a blank DISCORD_TOKEN")
		}
	})

	t.Run("prefix defaults to bang", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "token")
		cfg, err := config.NewDiscordConfigFromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Prefix != "!" {
			t.Errorf("expected prefix %q, got %q", "!", cfg.Prefix)
		}
	})
}

func TestNewSearchConfigFromEnv(t *testing.T) {
	t.Setenv("SEARCH_BLOCKED_UPLOADERS", "vevo,warner music")
	t.Setenv("SEARCH_BLOCKED_TITLES", "lyrical video")

	cfg, err := config.NewSearchConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &config.SearchConfig{
		BlockedUploaders: []string{"vevo", "warner music"},
		BlockedTitles:    []string{"lyrical video"},
		ResultLimit:      10,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("NewSearchConfigFromEnv() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewTranslateConfigFromEnv(t *testing.T) {
	t.Setenv("TRANSLATE_ENABLED", "false")

	cfg, err := config.NewTranslateConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &config.TranslateConfig{
		Enabled: false,
		BaseURL: "https://translate.googleapis.com",
		Timeout: 10 * time.Second,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("NewTranslateConfigFromEnv() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewPostgresConfigFromEnv(t *testing.T) {
	t.Run("unset host is not configured", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "")
		t.Setenv("POSTGRES_HOST", "")
		if _, err := config.NewPostgresConfigFromEnv(); !errors.Is(err, config.ErrPostgresNotConfigured) {
			t.Errorf("expected ErrPostgresNotConfigured, got %v", err)
		}
	})

	t.Run("fields build the dsn", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "")
		t.Setenv("POSTGRES_HOST", "db")
		t.Setenv("POSTGRES_PASSWORD", "secret")
		cfg, err := config.NewPostgresConfigFromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "postgres://jukebox:secret@db:5432/jukebox?sslmode=disable"
		if diff := cmp.Diff(want, cfg.DSN()); diff != "" {
			t.Errorf("DSN() mismatch (-want +got):\n%s", diff)
		}
		if cfg.Target() != "db:5432" {
			t.Errorf("expected target %q, got %q", "db:5432", cfg.Target())
		}
	})

	t.Run("url wins", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "postgres://u:p@elsewhere/history")
		t.Setenv("POSTGRES_HOST", "db")
		cfg, err := config.NewPostgresConfigFromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.DSN() != "postgres://u:p@elsewhere/history" {
			t.Errorf("expected the url to be used, got %q", cfg.DSN())
		}
	})
}

func TestNewLavalinkConfigFromEnvValidatesReconnectCron(t *testing.T) {
	t.Run("default schedule", func(t *testing.T) {
		cfg, err := config.NewLavalinkConfigFromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ReconnectCron != "*/5 * * * * * *" {
			t.Errorf("expected the five second schedule, got %q", cfg.ReconnectCron)
		}
	})

	t.Run("invalid schedule", func(t *testing.T) {
		t.Setenv("LAVALINK_RECONNECT_CRON", "every now and then")
		if _, err := config.NewLavalinkConfigFromEnv(); err == nil {
			t.Errorf("expected an invalid LAVALINK_RECONNECT_CRON to be rejected")
		}
	})
}
