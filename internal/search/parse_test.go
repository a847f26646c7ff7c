package search

import (
	"testing"
	"time"

	"github.com/glizzus/jukebox/internal/player"
	"github.com/google/go-cmp/cmp"
)

func TestParseYTDLPOutput(t *testing.T) {
	out := "https://www.youtube.com/watch?v=a\tFirst\tUploader A\t212.0\n" +
		"broken line\n" +
		"https://www.youtube.com/watch?v=b\tSecond\tNA\tNA\n"

	want := []player.Track{
		{Title: "First", SourceRef: "https://www.youtube.com/watch?v=a", URL: "https://www.youtube.com/watch?v=a", Author: "Uploader A", Duration: 212 * time.Second},
		{Title: "Second", SourceRef: "https://www.youtube.com/watch?v=b", URL: "https://www.youtube.com/watch?v=b"},
	}
	if diff := cmp.Diff(want, parseYTDLPOutput(out)); diff != "" {
		t.Errorf("parseYTDLPOutput() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseClockDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{in: "3:20", want: 200 * time.Second},
		{in: "1:05:20", want: time.Hour + 5*time.Minute + 20*time.Second},
		{in: "", want: 0},
		{in: "LIVE", want: 0},
		{in: "1:2:3:4", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseClockDuration(tt.in); got != tt.want {
				t.Errorf("parseClockDuration(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestYouTubeURLClassification(t *testing.T) {
	tests := []struct {
		url      string
		youtube  bool
		playlist bool
	}{
		{url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", youtube: true},
		{url: "https://youtu.be/dQw4w9WgXcQ", youtube: true},
		{url: "https://music.youtube.com/playlist?list=PL123", youtube: true, playlist: true},
		{url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123", youtube: true},
		{url: "https://soundcloud.com/artist/track", youtube: false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsYouTubeURL(tt.url); got != tt.youtube {
				t.Errorf("IsYouTubeURL() = %t, want %t", got, tt.youtube)
			}
			if got := isPlaylistURL(tt.url); got != tt.playlist {
				t.Errorf("isPlaylistURL() = %t, want %t", got, tt.playlist)
			}
		})
	}
}
