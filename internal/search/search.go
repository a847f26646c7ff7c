// Package search resolves user queries into playable tracks by walking an
// ordered waterfall of backends and filtering the results against a blocklist.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/glizzus/jukebox/internal/blocklist"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/util"
)

type LoadType int

const (
	LoadTrack LoadType = iota
	LoadPlaylist
	LoadSearch
	LoadEmpty
	LoadNoMatches
	LoadFailed
	LoadDisabled
	LoadNoNode
)

func (l LoadType) String() string {
	switch l {
	case LoadTrack:
		return "track"
	case LoadPlaylist:
		return "playlist"
	case LoadSearch:
		return "search"
	case LoadEmpty:
		return "empty"
	case LoadNoMatches:
		return "no_matches"
	case LoadFailed:
		return "failed"
	case LoadDisabled:
		return "disabled"
	case LoadNoNode:
		return "no_node"
	default:
		return "unknown"
	}
}

const NoMatchesMessage = "No tracks found. Try a more specific search with artist name."

// Resolution is what a single backend produced for a query. Err carries a
// failure reported by the backend itself, as opposed to a transport error.
type Resolution struct {
	LoadType LoadType
	Tracks   []player.Track
	Err      string
}

type Backend interface {
	Name() string
	Resolve(ctx context.Context, query string) (Resolution, error)
}

// Gate reports whether searching is possible at all, e.g. whether a remote
// node is configured and connected.
type Gate interface {
	SearchAvailable() (ok bool, loadType LoadType, message string)
}

// Result is the outcome of Search. OK is true only when Tracks is non-empty.
type Result struct {
	OK       bool
	LoadType LoadType
	Tracks   []player.Track
	Message  string
	Backend  string
}

var urlPattern = regexp.MustCompile(`^https?://`)

func IsURL(query string) bool {
	return urlPattern.MatchString(query)
}

// Searcher runs queries. URLs go to Direct only; free text walks Waterfall in
// order and the first backend with a non-empty filtered result wins.
type Searcher struct {
	Direct    Backend
	Waterfall []Backend
	Blocklist blocklist.Store
	Gate      Gate
	// Limit caps the number of tracks kept from a free-text search. Zero keeps all.
	Limit  int
	Logger *slog.Logger
}

func (s *Searcher) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Search never panics and never returns an error; failures are reported in
// the Result with OK set to false.
func (s *Searcher) Search(ctx context.Context, query string) (result Result) {
	logger := s.logger().With("query", query)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Search panicked", "panic", r)
			result = Result{OK: false, LoadType: LoadFailed, Message: "Search failed"}
		}
	}()

	if s.Gate != nil {
		if ok, loadType, message := s.Gate.SearchAvailable(); !ok {
			return Result{OK: false, LoadType: loadType, Message: message}
		}
	}

	entries := s.entries(ctx, logger)

	if IsURL(query) {
		if s.Direct == nil {
			return Result{OK: false, LoadType: LoadFailed, Message: "Links are not supported"}
		}
		res, err := s.resolve(ctx, s.Direct, query, entries, logger)
		if err != nil {
			return Result{OK: false, LoadType: LoadFailed, Message: err.Error(), Backend: s.Direct.Name()}
		}
		out := Result{OK: len(res.Tracks) > 0, LoadType: res.LoadType, Tracks: res.Tracks, Backend: s.Direct.Name()}
		if !out.OK {
			out.Message = res.Err
			if out.Message == "" {
				out.Message = NoMatchesMessage
			}
		}
		return out
	}

	for _, backend := range s.Waterfall {
		res, err := s.resolve(ctx, backend, query, entries, logger)
		if err != nil {
			logger.Warn("Search backend failed", "backend", backend.Name(), "err", err)
			continue
		}
		if len(res.Tracks) == 0 {
			logger.Debug("Search backend returned nothing", "backend", backend.Name(), "loadType", res.LoadType.String(), "detail", res.Err)
			continue
		}
		tracks := res.Tracks
		if s.Limit > 0 && res.LoadType == LoadSearch && len(tracks) > s.Limit {
			tracks = tracks[:s.Limit]
		}
		logger.Info("Search resolved", "backend", backend.Name(), "tracks", len(tracks))
		return Result{OK: true, LoadType: res.LoadType, Tracks: tracks, Backend: backend.Name()}
	}

	return Result{OK: false, LoadType: LoadNoMatches, Message: NoMatchesMessage}
}

// resolve runs one backend and applies the blocklist. A backend that panics
// is reported as an error so the waterfall can continue.
func (s *Searcher) resolve(ctx context.Context, backend Backend, query string, entries blocklist.Entries, logger *slog.Logger) (res Resolution, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend %s panicked: %v", backend.Name(), r)
		}
	}()

	res, err = backend.Resolve(ctx, query)
	if err != nil {
		return Resolution{}, err
	}
	if entries.Empty() || len(res.Tracks) == 0 {
		return res, nil
	}
	before := len(res.Tracks)
	res.Tracks = util.Filter(res.Tracks, func(t player.Track) bool {
		return !entries.Blocks(t.Author, t.Title)
	})
	if removed := before - len(res.Tracks); removed > 0 {
		logger.Debug("Filtered blocked tracks", "backend", backend.Name(), "removed", removed)
	}
	return res, nil
}

func (s *Searcher) entries(ctx context.Context, logger *slog.Logger) blocklist.Entries {
	if s.Blocklist == nil {
		return blocklist.Entries{}
	}
	entries, err := s.Blocklist.Entries(ctx)
	if err != nil {
		logger.Warn("Failed to load blocklist, continuing with partial entries", "err", err)
	}
	return entries
}

// Filtered wraps a backend with an extra blocklist applied only to its own
// results, for fallbacks that need stricter filtering than the rest.
func Filtered(backend Backend, entries blocklist.Entries) Backend {
	return &filteredBackend{inner: backend, entries: entries}
}

type filteredBackend struct {
	inner   Backend
	entries blocklist.Entries
}

func (f *filteredBackend) Name() string {
	return f.inner.Name()
}

func (f *filteredBackend) Resolve(ctx context.Context, query string) (Resolution, error) {
	res, err := f.inner.Resolve(ctx, query)
	if err != nil {
		return res, err
	}
	res.Tracks = util.Filter(res.Tracks, func(t player.Track) bool {
		return !f.entries.Blocks(t.Author, t.Title)
	})
	return res, nil
}
