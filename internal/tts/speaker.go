package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/glizzus/jukebox/internal/datalayer"
	"github.com/glizzus/jukebox/internal/generator"
	"github.com/glizzus/jukebox/internal/player"
)

const (
	MaxTextLength   = 500
	DefaultLanguage = "en"
	ClipPrefix      = "tts/"
)

var (
	ErrEmptyText   = errors.New("nothing to say")
	ErrTextTooLong = fmt.Errorf("text is longer than %d characters", MaxTextLength)
)

// Languages maps the codes accepted by -lang to display names. Every entry
// is spoken by the same multilingual voice.
var Languages = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"ta": "Tamil",
	"te": "Telugu",
	"bn": "Bengali",
	"mr": "Marathi",
	"gu": "Gujarati",
	"kn": "Kannada",
	"ml": "Malayalam",
}

// LanguageCodes lists Languages in display order.
var LanguageCodes = []string{"en", "hi", "ta", "te", "bn", "mr", "gu", "kn", "ml"}

func IsLanguageSupported(lang string) bool {
	_, ok := Languages[lang]
	return ok
}

// EstimateDuration guesses speech length at 150 words per minute and five
// characters per word, rounded up to whole seconds.
func EstimateDuration(text string) time.Duration {
	words := float64(utf8.RuneCountInString(text)) / 5
	seconds := math.Ceil(words / 150 * 60)
	return time.Duration(seconds) * time.Second
}

// Synthesizer produces encoded audio for a piece of text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Clip is a stored piece of speech.
type Clip struct {
	Track    player.Track
	Audio    []byte
	Language string
}

// Speaker stores synthesized clips and hands them out as tracks.
type Speaker struct {
	synth  Synthesizer
	store  datalayer.BlobStorage
	keys   generator.Generator[string]
	expiry time.Duration
}

func NewSpeaker(synth Synthesizer, store datalayer.BlobStorage, expiry time.Duration) *Speaker {
	return &Speaker{
		synth:  synth,
		store:  store,
		keys:   &generator.KeyGenerator{Prefix: ClipPrefix, Suffix: ".mp3"},
		expiry: expiry,
	}
}

// Speak synthesizes text, uploads the clip and returns it with a track
// pointing at a presigned URL. Unknown languages fall back to English.
func (s *Speaker) Speak(ctx context.Context, text, lang, requestedBy string) (*Clip, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return nil, ErrEmptyText
	case len([]rune(text)) > MaxTextLength:
		return nil, ErrTextTooLong
	}
	if !IsLanguageSupported(lang) {
		lang = DefaultLanguage
	}

	audio, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	key, err := s.keys.Next()
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, key, bytes.NewReader(audio), datalayer.PutOptions{
		Size:        int64(len(audio)),
		ContentType: "audio/mpeg",
	}); err != nil {
		return nil, fmt.Errorf("failed to store tts clip: %w", err)
	}
	link, err := s.store.Presign(ctx, key, s.expiry)
	if err != nil {
		return nil, err
	}

	return &Clip{
		Track: player.Track{
			Title:       fmt.Sprintf("TTS (%s): %s", Languages[lang], preview(text)),
			SourceRef:   link,
			URL:         link,
			Author:      "ElevenLabs",
			Duration:    EstimateDuration(text),
			RequestedBy: requestedBy,
		},
		Audio:    audio,
		Language: lang,
	}, nil
}

func preview(text string) string {
	const max = 50
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "..."
}
