package player

import (
	"fmt"
	"strings"
	"time"
)

// Track is a playable item produced by a search backend.
// SourceRef is either a URL or an opaque payload understood by the transport
// (for example a Lavalink encoded track). URL is a human-facing link and may
// be empty. A zero Duration means unknown.
type Track struct {
	Title       string
	SourceRef   string
	URL         string
	Author      string
	Duration    time.Duration
	RequestedBy string
}

func (t Track) String() string {
	if t.Title == "" {
		return t.SourceRef
	}
	return t.Title
}

// FormatDuration renders a duration as m:ss or h:mm:ss, and "live" when unknown.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "live"
	}
	total := int(d.Round(time.Second).Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Link returns the best human-facing link for the track.
func (t Track) Link() string {
	if t.URL != "" {
		return t.URL
	}
	if strings.HasPrefix(t.SourceRef, "http://") || strings.HasPrefix(t.SourceRef, "https://") {
		return t.SourceRef
	}
	return ""
}
