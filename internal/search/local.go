package search

import (
	"github.com/glizzus/jukebox/internal/blocklist"
	"github.com/kkdai/youtube/v2"
)

// StrictYouTubeFilter drops label uploads and official videos from plain
// YouTube results, which are the ones most often region or age restricted.
var StrictYouTubeFilter = blocklist.Entries{
	Uploaders: []string{
		"vevo", "t-series", "tseries", "sony music", "zee music",
		"tips official", "tips music", "gaane filmi", "ultra music",
		"warner music", "universal music",
	},
	Titles: []string{"official", "lyrical video"},
}

// NewLocalSearcher builds the waterfall used when no Lavalink node is in
// play: YouTube Music first, then YouTube search, then yt-dlp with the strict
// filter. Links are resolved natively for YouTube and through yt-dlp otherwise.
func NewLocalSearcher(store blocklist.Store, limit int) *Searcher {
	ytdlpBackend := &YTDLPBackend{Limit: limit}
	return &Searcher{
		Direct: &YouTubeURLBackend{
			Client:        &youtube.Client{},
			Fallback:      ytdlpBackend,
			PlaylistLimit: 100,
		},
		Waterfall: []Backend{
			&YouTubeMusicBackend{Limit: limit},
			&YouTubeSearchBackend{Limit: limit},
			Filtered(ytdlpBackend, StrictYouTubeFilter),
		},
		Blocklist: store,
		Limit:     limit,
	}
}
