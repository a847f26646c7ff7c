package handler

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/presenters"
	"github.com/glizzus/jukebox/internal/translate"
)

type Translator interface {
	Translate(ctx context.Context, text, target string) (*translate.Result, error)
	Detect(ctx context.Context, text string) (*translate.Detection, error)
}

var _ Translator = (*translate.Client)(nil)

// Translation implements the translate command, which works on the message
// the caller replied to.
type Translation struct {
	Translator Translator
	Prefix     string
}

func (tr *Translation) Translate(ctx context.Context, s DiscordSession, m *discordgo.MessageCreate, args []string) error {
	if len(args) == 0 {
		return reply(s, m, presenters.BuildTranslateUsageMessage(tr.Prefix))
	}
	sub := strings.ToLower(args[0])
	if sub == "list" {
		return reply(s, m, presenters.BuildLanguageListMessage())
	}
	if tr.Translator == nil {
		return translate.ErrDisabled
	}

	if m.ReferencedMessage == nil {
		return userErrorf("Please reply to the message you want to translate, then type `%stranslate <language_code>`.", tr.Prefix)
	}
	text := strings.TrimSpace(m.ReferencedMessage.Content)
	if text == "" {
		return userErrorf("The message you replied to has no text to translate!")
	}

	if sub == "detect" {
		d, err := tr.Translator.Detect(ctx, text)
		if err != nil {
			return err
		}
		return reply(s, m, presenters.BuildDetectionMessage(d, text))
	}

	if !translate.IsSupported(sub) {
		return userErrorf("`%s` is not a valid language code. Use `%stranslate list` to see all supported languages.", sub, tr.Prefix)
	}
	res, err := tr.Translator.Translate(ctx, text, sub)
	if err != nil {
		return err
	}
	if res.SourceLanguage == res.TargetLanguage {
		return reply(s, m, presenters.BuildAlreadyTranslatedMessage(res))
	}
	return reply(s, m, presenters.BuildTranslationMessage(res, text, m.Author.ID))
}
