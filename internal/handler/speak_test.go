package handler

import (
	"context"
	"strings"
	"testing"

	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/search"
	"github.com/glizzus/jukebox/internal/tts"
	"github.com/google/go-cmp/cmp"
)

func TestParseSpeakArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantText string
		wantLang string
	}{
		{name: "default language", args: []string{"hello", "there"}, wantText: "hello there", wantLang: "en"},
		{name: "trailing flag", args: []string{"vanakkam", "-lang", "TA"}, wantText: "vanakkam", wantLang: "ta"},
		{name: "short flag first", args: []string{"-l", "hi", "namaste"}, wantText: "namaste", wantLang: "hi"},
		{name: "dangling flag is text", args: []string{"say", "-lang"}, wantText: "say -lang", wantLang: "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, lang := parseSpeakArgs(tt.args)
			if diff := cmp.Diff([]string{tt.wantText, tt.wantLang}, []string{text, lang}); diff != "" {
				t.Errorf("parseSpeakArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type speechHarness struct {
	*musicHarness
	speaker *fakeSpeaker
	speech  *Speech
}

func newSpeechHarness(channels map[string]string, resolver Searcher) *speechHarness {
	h := &speechHarness{musicHarness: newMusicHarness(channels), speaker: &fakeSpeaker{}}
	h.speech = &Speech{Speaker: h.speaker, Music: h.music, Prefix: "!", Resolver: resolver}
	h.router = NewRouter("!", nil)
	EstablishCommands(h.router, Commands(h.music, h.speech, &Status{}, &Translation{}))
	return h
}

func TestSpeakSendsVoiceNoteOutsideVoice(t *testing.T) {
	h := newSpeechHarness(nil, nil)

	h.run(t, "user-1", "!say hello world -lang ta")

	want := []sent{{ChannelID: "text-1", Content: "Voice note (Tamil)", Files: []string{"voice_note.mp3"}, Reply: true}}
	if diff := cmp.Diff(want, h.session.sent); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
	if h.speaker.text != "hello world" || h.speaker.lang != "ta" {
		t.Errorf("unexpected synthesis request %q/%q", h.speaker.text, h.speaker.lang)
	}
}

func TestSpeakPlaysInVoice(t *testing.T) {
	resolver := &fakeSearcher{results: map[string]search.Result{
		"https://blobs.example.com/tts/clip.mp3": {OK: true, LoadType: search.LoadTrack, Tracks: []player.Track{{SourceRef: "enc-clip"}}},
	}}
	h := newSpeechHarness(map[string]string{"user-1": "voice-1"}, resolver)

	h.run(t, "user-1", "!tts hello", "!tts again")

	want := []string{"Speaking in English.", "Queued your voice message at position 1."}
	if diff := cmp.Diff(want, h.session.contents()); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
	played := h.transport.last().played
	if diff := cmp.Diff([]string{"enc-clip"}, sourceRefs(played)); diff != "" {
		t.Errorf("played mismatch (-want +got):\n%s", diff)
	}
	if played[0].Title != "TTS (English): hello" || played[0].RequestedBy != "user-1" {
		t.Errorf("expected clip metadata to survive resolution, got %+v", played[0])
	}
}

func TestSpeakRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
		want    string
	}{
		{name: "unsupported language", content: "!speak hi -lang xx", want: "Language code `xx` is not supported! Use `!speak` without arguments to see available languages."},
		{name: "too long", content: "!speak long", err: tts.ErrTextTooLong, want: "Please keep your text under 500 characters!"},
		{name: "disabled", content: "!speak hi", err: tts.ErrDisabled, want: "Text-to-speech is not configured."},
		{name: "api failure", content: "!speak hi", err: &tts.APIError{Status: 401, Message: "invalid api key"}, want: "Voice generation failed: invalid api key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newSpeechHarness(nil, nil)
			h.speaker.err = tt.err

			h.run(t, "user-1", tt.content)

			if diff := cmp.Diff([]string{tt.want}, h.session.contents()); diff != "" {
				t.Errorf("replies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSpeakUsage(t *testing.T) {
	h := newSpeechHarness(nil, nil)
	h.run(t, "user-1", "!voice")

	got := h.session.contents()
	if len(got) != 1 || !strings.HasPrefix(got[0], "Usage: `!speak <text> [-lang <code>]`") {
		t.Errorf("unexpected usage reply %q", got)
	}
}

func TestSpeakWithoutSpeaker(t *testing.T) {
	h := newSpeechHarness(nil, nil)
	h.speech.Speaker = nil
	h.run(t, "user-1", "!speak hi")

	if diff := cmp.Diff([]string{"Text-to-speech is not configured."}, h.session.contents()); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
}

func TestSpeakLocatorFailure(t *testing.T) {
	h := newSpeechHarness(nil, nil)
	h.music.Locate = failingLocator(errBoom)
	if err := h.router.Route(context.Background(), h.session, message("user-1", "!speak hi")); err == nil {
		t.Fatalf("expected locator errors to surface")
	}
	if diff := cmp.Diff([]string{genericFailure}, h.session.contents()); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
}
