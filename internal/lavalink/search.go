package lavalink

import (
	"context"
	"fmt"

	"github.com/glizzus/jukebox/internal/blocklist"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/search"
)

// Search prefixes understood by Lavalink source plugins.
const (
	PrefixSpotify                = "spsearch:"
	PrefixSpotifyRecommendations = "sprec:"
	PrefixYouTubeMusic           = "ytmsearch:"
	PrefixYouTube                = "ytsearch:"
)

// SearchBackend resolves queries on the pool's preferred node. An empty
// Prefix passes the query through unchanged, which is how links are loaded.
type SearchBackend struct {
	Pool   *Pool
	Prefix string
}

func (b *SearchBackend) Name() string {
	if b.Prefix == "" {
		return "lavalink"
	}
	return "lavalink:" + b.Prefix[:len(b.Prefix)-1]
}

func (b *SearchBackend) Resolve(ctx context.Context, query string) (search.Resolution, error) {
	node := b.Pool.GetNode()
	if node == nil {
		return search.Resolution{LoadType: search.LoadNoNode, Err: "No connected Lavalink node"}, nil
	}

	res, err := node.LoadTracks(ctx, b.Prefix+query)
	if err != nil {
		return search.Resolution{}, err
	}
	if ex := res.Exception(); ex != nil {
		return search.Resolution{LoadType: search.LoadFailed, Err: ex.Message}, nil
	}

	tracks, err := res.Tracks()
	if err != nil {
		return search.Resolution{}, fmt.Errorf("failed to decode %s result: %w", res.LoadType, err)
	}
	out := make([]player.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Encoded == "" {
			continue
		}
		out = append(out, t.PlayerTrack())
	}
	return search.Resolution{LoadType: loadType(res.LoadType, len(out)), Tracks: out}, nil
}

var _ search.Backend = (*SearchBackend)(nil)

func loadType(lt string, n int) search.LoadType {
	if n == 0 {
		return search.LoadEmpty
	}
	switch lt {
	case LoadTypeTrack:
		return search.LoadTrack
	case LoadTypePlaylist:
		return search.LoadPlaylist
	default:
		return search.LoadSearch
	}
}

// NewSearcher builds the Lavalink waterfall: Spotify search, Spotify
// recommendations, YouTube Music, then strictly filtered YouTube.
func NewSearcher(pool *Pool, store blocklist.Store, limit int) *search.Searcher {
	return &search.Searcher{
		Direct: &SearchBackend{Pool: pool},
		Waterfall: []search.Backend{
			&SearchBackend{Pool: pool, Prefix: PrefixSpotify},
			&SearchBackend{Pool: pool, Prefix: PrefixSpotifyRecommendations},
			&SearchBackend{Pool: pool, Prefix: PrefixYouTubeMusic},
			search.Filtered(&SearchBackend{Pool: pool, Prefix: PrefixYouTube}, search.StrictYouTubeFilter),
		},
		Blocklist: store,
		Gate:      pool,
		Limit:     limit,
	}
}
