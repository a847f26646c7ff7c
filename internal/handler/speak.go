package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/presenters"
	"github.com/glizzus/jukebox/internal/tts"
	"github.com/glizzus/jukebox/internal/voice"
)

// Speaker turns text into a stored clip.
type Speaker interface {
	Speak(ctx context.Context, text, lang, requestedBy string) (*tts.Clip, error)
}

var _ Speaker = (*tts.Speaker)(nil)

// Speech implements the text-to-speech command. Callers in a voice channel
// hear the clip through the guild queue; everyone else gets a voice note.
type Speech struct {
	Speaker Speaker
	Music   *Music
	Prefix  string

	// Resolver, when set, turns the clip link into a track the transport
	// can play, such as a Lavalink encoded track.
	Resolver Searcher
}

// parseSpeakArgs splits "-lang xx" (or "-l xx") out of the words.
func parseSpeakArgs(args []string) (text, lang string) {
	lang = tts.DefaultLanguage
	words := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		flag := strings.ToLower(args[i])
		if (flag == "-lang" || flag == "-l") && i+1 < len(args) {
			lang = strings.ToLower(args[i+1])
			i++
			continue
		}
		words = append(words, args[i])
	}
	return strings.Join(words, " "), lang
}

func (sp *Speech) Speak(ctx context.Context, s DiscordSession, m *discordgo.MessageCreate, args []string) error {
	if len(args) == 0 {
		return reply(s, m, presenters.BuildSpeakUsageMessage(sp.Prefix))
	}
	if sp.Speaker == nil {
		return tts.ErrDisabled
	}

	text, lang := parseSpeakArgs(args)
	if !tts.IsLanguageSupported(lang) {
		return userErrorf("Language code `%s` is not supported! Use `%sspeak` without arguments to see available languages.", lang, sp.Prefix)
	}

	clip, err := sp.Speaker.Speak(ctx, text, lang, m.Author.ID)
	if err != nil {
		return err
	}

	inVoice := false
	if sp.Music != nil {
		_, err := sp.Music.Locate(m.GuildID, m.Author.ID)
		switch {
		case err == nil:
			inVoice = true
		case !errors.Is(err, voice.ErrNotInVoice):
			return fmt.Errorf("failed to find voice channel of %s: %w", m.Author.ID, err)
		}
	}
	if !inVoice {
		return reply(s, m, presenters.BuildVoiceNoteMessage(clip))
	}

	track, err := sp.playable(ctx, clip.Track)
	if err != nil {
		return err
	}
	position, started, handled, err := sp.Music.playFor(ctx, m, []player.Track{track})
	if err != nil || handled {
		return err
	}
	if started {
		return replyText(s, m, fmt.Sprintf("Speaking in %s.", tts.Languages[clip.Language]))
	}
	return replyText(s, m, fmt.Sprintf("Queued your voice message at position %d.", position))
}

func (sp *Speech) playable(ctx context.Context, track player.Track) (player.Track, error) {
	if sp.Resolver == nil {
		return track, nil
	}
	res := sp.Resolver.Search(ctx, track.SourceRef)
	if !res.OK {
		return player.Track{}, fmt.Errorf("failed to load voice clip: %s: %s", res.LoadType, res.Message)
	}
	track.SourceRef = res.Tracks[0].SourceRef
	return track, nil
}
