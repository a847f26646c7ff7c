package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// SearchConfig lists uploader names and title fragments that are filtered
// out of search results. Matching is case-insensitive substring matching.
type SearchConfig struct {
	BlockedUploaders []string `env:"SEARCH_BLOCKED_UPLOADERS, default=vevo,t-series,tseries,sony music,zee music"`
	BlockedTitles    []string `env:"SEARCH_BLOCKED_TITLES"`
	ResultLimit      int      `env:"SEARCH_RESULT_LIMIT, default=10"`
}

func NewSearchConfigFromEnv() (*SearchConfig, error) {
	var cfg SearchConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
