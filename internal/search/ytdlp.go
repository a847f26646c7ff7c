package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/glizzus/jukebox/internal/player"
	"github.com/lrstanley/go-ytdlp"
)

const ytdlpPrintTemplate = "%(webpage_url)s\t%(title)s\t%(uploader)s\t%(duration)s"

// YTDLPBackend searches through the yt-dlp binary. For links it extracts the
// metadata of whatever site yt-dlp supports.
type YTDLPBackend struct {
	Limit int
}

func (b *YTDLPBackend) Name() string {
	return "yt-dlp"
}

func (b *YTDLPBackend) limit() int {
	if b.Limit > 0 {
		return b.Limit
	}
	return 5
}

func (b *YTDLPBackend) Resolve(ctx context.Context, query string) (Resolution, error) {
	if IsURL(query) {
		return b.resolveURL(ctx, query)
	}

	n := b.limit()
	res, err := ytdlp.New().
		FlatPlaylist().
		Print(ytdlpPrintTemplate).
		PlaylistItems(fmt.Sprintf("1-%d", n)).
		NoWarnings().
		IgnoreConfig().
		Run(ctx, fmt.Sprintf("ytsearch%d:%s", n, query))
	if err != nil {
		return Resolution{}, fmt.Errorf("yt-dlp search failed: %w", err)
	}
	return searchResolution(parseYTDLPOutput(res.Stdout)), nil
}

func (b *YTDLPBackend) resolveURL(ctx context.Context, link string) (Resolution, error) {
	res, err := ytdlp.New().
		FlatPlaylist().
		Print(ytdlpPrintTemplate).
		PlaylistItems(fmt.Sprintf("1-%d", b.limit())).
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", link)
	if err != nil {
		stderr := ""
		if res != nil {
			stderr = strings.ToLower(res.Stderr)
		}
		if strings.Contains(stderr, "drm") {
			return Resolution{LoadType: LoadFailed, Err: "This link is DRM protected"}, nil
		}
		return Resolution{LoadType: LoadFailed, Err: err.Error()}, nil
	}

	tracks := parseYTDLPOutput(res.Stdout)
	switch len(tracks) {
	case 0:
		return Resolution{LoadType: LoadEmpty}, nil
	case 1:
		return Resolution{LoadType: LoadTrack, Tracks: tracks}, nil
	default:
		return Resolution{LoadType: LoadPlaylist, Tracks: tracks}, nil
	}
}

var _ Backend = (*YTDLPBackend)(nil)

// parseYTDLPOutput reads one track per line in ytdlpPrintTemplate format.
// Lines with missing fields are skipped.
func parseYTDLPOutput(out string) []player.Track {
	var tracks []player.Track
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 4 || fields[0] == "" || fields[0] == "NA" {
			continue
		}
		var d time.Duration
		if secs, err := strconv.ParseFloat(fields[3], 64); err == nil {
			d = time.Duration(secs * float64(time.Second)).Round(time.Second)
		}
		author := fields[2]
		if author == "NA" {
			author = ""
		}
		tracks = append(tracks, player.Track{
			Title:     fields[1],
			SourceRef: fields[0],
			URL:       fields[0],
			Author:    author,
			Duration:  d,
		})
	}
	return tracks
}
