package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glizzus/jukebox/internal/config"
	"github.com/glizzus/jukebox/internal/datalayer"
	"github.com/glizzus/jukebox/internal/tts"
	"github.com/google/go-cmp/cmp"
)

func newConfig(baseURL string) *config.ElevenLabsConfig {
	return &config.ElevenLabsConfig{
		APIKey:       "secret",
		VoiceID:      "voice-1",
		ModelID:      "eleven_multilingual_v2",
		OutputFormat: "mp3_44100_128",
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
	}
}

func TestClientSynthesize(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("output_format")
		gotKey = r.Header.Get("xi-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "ID3audio")
	}))
	defer server.Close()

	audio, err := tts.NewClient(newConfig(server.URL)).Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "ID3audio" {
		t.Errorf("unexpected audio %q", audio)
	}
	if gotPath != "/v1/text-to-speech/voice-1" || gotQuery != "mp3_44100_128" || gotKey != "secret" {
		t.Errorf("unexpected request path=%s format=%s key=%s", gotPath, gotQuery, gotKey)
	}
	wantBody := map[string]any{
		"text":           "hello there",
		"model_id":       "eleven_multilingual_v2",
		"voice_settings": map[string]any{"stability": 0.5, "similarity_boost": 0.8},
	}
	if diff := cmp.Diff(wantBody, gotBody); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "top level message", status: http.StatusUnauthorized, body: `{"message":"invalid api key"}`, want: "invalid api key"},
		{name: "detail message", status: http.StatusBadRequest, body: `{"detail":{"status":"quota_exceeded","message":"quota exceeded"}}`, want: "quota exceeded"},
		{name: "no json", status: http.StatusBadGateway, body: "upstream down", want: "502 Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := tts.NewClient(newConfig(server.URL)).Synthesize(context.Background(), "hi")
			var apiErr *tts.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.want {
				t.Errorf("got %d %q, want %d %q", apiErr.Status, apiErr.Message, tt.status, tt.want)
			}
		})
	}
}

func TestClientDisabled(t *testing.T) {
	cfg := newConfig("http://unused")
	cfg.APIKey = ""
	if _, err := tts.NewClient(cfg).Synthesize(context.Background(), "hi"); !errors.Is(err, tts.ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

type fakeSynth struct {
	texts []string
	err   error
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.texts = append(f.texts, text)
	return []byte("audio"), f.err
}

type fakeBlobs struct {
	keys         []string
	contentTypes []string
	putErr       error
}

func (f *fakeBlobs) Put(_ context.Context, key string, data io.Reader, opts datalayer.PutOptions) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.keys = append(f.keys, key)
	f.contentTypes = append(f.contentTypes, opts.ContentType)
	_, err := io.ReadAll(data)
	return err
}

func (f *fakeBlobs) Presign(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://blobs.example.com/" + key + "?sig=1", nil
}

func TestSpeakerSpeak(t *testing.T) {
	synth := &fakeSynth{}
	blobs := &fakeBlobs{}
	speaker := tts.NewSpeaker(synth, blobs, time.Hour)

	clip, err := speaker.Speak(context.Background(), "  namaste  ", "hi", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	track := clip.Track
	if string(clip.Audio) != "audio" || clip.Language != "hi" {
		t.Errorf("unexpected clip audio=%q language=%s", clip.Audio, clip.Language)
	}
	if diff := cmp.Diff([]string{"namaste"}, synth.texts); diff != "" {
		t.Errorf("synthesized text mismatch (-want +got):\n%s", diff)
	}
	if len(blobs.keys) != 1 || !strings.HasPrefix(blobs.keys[0], "tts/") || !strings.HasSuffix(blobs.keys[0], ".mp3") {
		t.Fatalf("unexpected keys %v", blobs.keys)
	}
	if blobs.contentTypes[0] != "audio/mpeg" {
		t.Errorf("unexpected content type %s", blobs.contentTypes[0])
	}
	if track.SourceRef != "https://blobs.example.com/"+blobs.keys[0]+"?sig=1" {
		t.Errorf("unexpected source %s", track.SourceRef)
	}
	if track.Title != "TTS (Hindi): namaste" || track.RequestedBy != "user-1" {
		t.Errorf("unexpected track %+v", track)
	}
}

func TestSpeakerRejects(t *testing.T) {
	synthErr := errors.New("quota exceeded")
	storeErr := errors.New("bucket missing")

	tests := []struct {
		name  string
		text  string
		synth error
		store error
		want  error
	}{
		{name: "empty", text: "   ", want: tts.ErrEmptyText},
		{name: "too long", text: strings.Repeat("a", tts.MaxTextLength+1), want: tts.ErrTextTooLong},
		{name: "synthesis fails", text: "hi", synth: synthErr, want: synthErr},
		{name: "upload fails", text: "hi", store: storeErr, want: storeErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			speaker := tts.NewSpeaker(&fakeSynth{err: tt.synth}, &fakeBlobs{putErr: tt.store}, time.Hour)
			if _, err := speaker.Speak(context.Background(), tt.text, "en", "user-1"); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSpeakerUnknownLanguageFallsBack(t *testing.T) {
	speaker := tts.NewSpeaker(&fakeSynth{}, &fakeBlobs{}, time.Hour)
	clip, err := speaker.Speak(context.Background(), "bonjour", "fr", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clip.Track.Title != "TTS (English): bonjour" {
		t.Errorf("unexpected title %s", clip.Track.Title)
	}
}

func TestEstimateDuration(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
	}{
		{text: "", want: 0},
		{text: "hello", want: time.Second},
		{text: strings.Repeat("a", 750), want: time.Minute},
		{text: strings.Repeat("த", 750), want: time.Minute},
	}
	for _, tt := range tests {
		if got := tts.EstimateDuration(tt.text); got != tt.want {
			t.Errorf("EstimateDuration(%d bytes) = %v, want %v", len(tt.text), got, tt.want)
		}
	}
}
