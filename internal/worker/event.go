package worker

import (
	"fmt"
	"strconv"
	"time"

	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/repository"
	"github.com/redis/go-redis/v9"
)

// PlaybackEvent is a track start as carried on the playback stream.
type PlaybackEvent struct {
	// StreamID is the Redis entry id. It is set on received events only.
	StreamID string

	EventID  string
	GuildID  string
	Track    player.Track
	PlayedAt time.Time
}

func (e PlaybackEvent) values() map[string]any {
	return map[string]any{
		"eventID":     e.EventID,
		"guildID":     e.GuildID,
		"title":       e.Track.Title,
		"author":      e.Track.Author,
		"url":         e.Track.URL,
		"sourceRef":   e.Track.SourceRef,
		"durationMs":  strconv.FormatInt(e.Track.Duration.Milliseconds(), 10),
		"requestedBy": e.Track.RequestedBy,
		"playedAt":    e.PlayedAt.UTC().Format(time.RFC3339Nano),
	}
}

func parsePlaybackEvent(msg redis.XMessage) (PlaybackEvent, error) {
	str := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}

	ev := PlaybackEvent{
		StreamID: msg.ID,
		EventID:  str("eventID"),
		GuildID:  str("guildID"),
		Track: player.Track{
			Title:       str("title"),
			Author:      str("author"),
			URL:         str("url"),
			SourceRef:   str("sourceRef"),
			RequestedBy: str("requestedBy"),
		},
	}
	if ev.EventID == "" || ev.GuildID == "" {
		return ev, fmt.Errorf("entry %s is missing eventID or guildID", msg.ID)
	}
	if raw := str("durationMs"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ev, fmt.Errorf("entry %s has invalid durationMs %q: %w", msg.ID, raw, err)
		}
		ev.Track.Duration = time.Duration(ms) * time.Millisecond
	}
	playedAt, err := time.Parse(time.RFC3339Nano, str("playedAt"))
	if err != nil {
		return ev, fmt.Errorf("entry %s has invalid playedAt: %w", msg.ID, err)
	}
	ev.PlayedAt = playedAt
	return ev, nil
}

// Play converts the event to a history row.
func (e PlaybackEvent) Play() repository.Play {
	return repository.Play{
		EventID:     e.EventID,
		GuildID:     e.GuildID,
		Title:       e.Track.Title,
		Author:      e.Track.Author,
		URL:         e.Track.URL,
		SourceRef:   e.Track.SourceRef,
		Duration:    e.Track.Duration,
		RequestedBy: e.Track.RequestedBy,
		PlayedAt:    e.PlayedAt,
	}
}
