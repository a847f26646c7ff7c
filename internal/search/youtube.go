package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/glizzus/jukebox/internal/player"
	"github.com/kkdai/youtube/v2"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// IsYouTubeURL reports whether raw points at youtube.com, music.youtube.com or youtu.be.
func IsYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

// isPlaylistURL reports whether raw names a playlist rather than a single video.
func isPlaylistURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	q := u.Query()
	return q.Get("list") != "" && q.Get("v") == "" && !strings.EqualFold(u.Hostname(), "youtu.be")
}

// parseClockDuration parses "3:20" or "1:05:20". Unparseable input yields 0.
func parseClockDuration(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	var total int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}

// YouTubeMusicBackend searches YouTube Music, which carries cleaner music
// metadata than general YouTube search.
type YouTubeMusicBackend struct {
	Limit int
}

func (b *YouTubeMusicBackend) Name() string {
	return "youtube-music"
}

func (b *YouTubeMusicBackend) Resolve(ctx context.Context, query string) (Resolution, error) {
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}
	res, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return Resolution{}, fmt.Errorf("youtube music search failed: %w", err)
	}

	tracks := make([]player.Track, 0, len(res.Tracks))
	for _, v := range res.Tracks {
		if v.VideoID == "" {
			continue
		}
		author := ""
		if len(v.Artists) > 0 {
			author = v.Artists[0].Name
		}
		tracks = append(tracks, player.Track{
			Title:     v.Title,
			SourceRef: WatchURL(v.VideoID),
			URL:       WatchURL(v.VideoID),
			Author:    author,
			Duration:  time.Duration(v.Duration) * time.Second,
		})
		if b.Limit > 0 && len(tracks) >= b.Limit {
			break
		}
	}
	return searchResolution(tracks), nil
}

var _ Backend = (*YouTubeMusicBackend)(nil)

type YouTubeSearchBackend struct {
	Limit int
}

func (b *YouTubeSearchBackend) Name() string {
	return "youtube-search"
}

func (b *YouTubeSearchBackend) Resolve(ctx context.Context, query string) (Resolution, error) {
	res, err := ytsearch.NewClient(nil).Search(ctx, query)
	if err != nil {
		return Resolution{}, fmt.Errorf("youtube search failed: %w", err)
	}

	tracks := make([]player.Track, 0, len(res.Results))
	for _, v := range res.Results {
		if v.VideoID == "" {
			continue
		}
		tracks = append(tracks, player.Track{
			Title:     v.Title,
			SourceRef: WatchURL(v.VideoID),
			URL:       WatchURL(v.VideoID),
			Author:    v.Channel,
			Duration:  parseClockDuration(v.Duration),
		})
		if b.Limit > 0 && len(tracks) >= b.Limit {
			break
		}
	}
	return searchResolution(tracks), nil
}

var _ Backend = (*YouTubeSearchBackend)(nil)

// YouTubeURLBackend resolves direct links. YouTube videos and playlists are
// looked up natively; anything else is handed to Fallback when set.
type YouTubeURLBackend struct {
	Client   *youtube.Client
	Fallback Backend
	// PlaylistLimit caps how many playlist entries are returned. Zero keeps all.
	PlaylistLimit int
}

func (b *YouTubeURLBackend) Name() string {
	return "youtube-url"
}

func (b *YouTubeURLBackend) client() *youtube.Client {
	if b.Client != nil {
		return b.Client
	}
	return &youtube.Client{}
}

func (b *YouTubeURLBackend) Resolve(ctx context.Context, query string) (Resolution, error) {
	if !IsYouTubeURL(query) {
		if b.Fallback == nil {
			return Resolution{LoadType: LoadEmpty, Err: "Unsupported link"}, nil
		}
		return b.Fallback.Resolve(ctx, query)
	}

	client := b.client()
	if isPlaylistURL(query) {
		playlist, err := client.GetPlaylistContext(ctx, query)
		if err != nil {
			return Resolution{LoadType: LoadFailed, Err: err.Error()}, nil
		}
		tracks := make([]player.Track, 0, len(playlist.Videos))
		for _, entry := range playlist.Videos {
			tracks = append(tracks, player.Track{
				Title:     entry.Title,
				SourceRef: WatchURL(entry.ID),
				URL:       WatchURL(entry.ID),
				Author:    entry.Author,
				Duration:  entry.Duration,
			})
			if b.PlaylistLimit > 0 && len(tracks) >= b.PlaylistLimit {
				break
			}
		}
		if len(tracks) == 0 {
			return Resolution{LoadType: LoadEmpty}, nil
		}
		return Resolution{LoadType: LoadPlaylist, Tracks: tracks}, nil
	}

	video, err := client.GetVideoContext(ctx, query)
	if err != nil {
		if errors.Is(err, youtube.ErrVideoPrivate) {
			return Resolution{LoadType: LoadFailed, Err: "This video is private"}, nil
		}
		return Resolution{LoadType: LoadFailed, Err: err.Error()}, nil
	}
	return Resolution{
		LoadType: LoadTrack,
		Tracks: []player.Track{{
			Title:     video.Title,
			SourceRef: WatchURL(video.ID),
			URL:       WatchURL(video.ID),
			Author:    video.Author,
			Duration:  video.Duration,
		}},
	}, nil
}

var _ Backend = (*YouTubeURLBackend)(nil)

func searchResolution(tracks []player.Track) Resolution {
	if len(tracks) == 0 {
		return Resolution{LoadType: LoadEmpty}
	}
	return Resolution{LoadType: LoadSearch, Tracks: tracks}
}
