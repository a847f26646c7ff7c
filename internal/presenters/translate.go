package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/translate"
)

// maxQuoteRunes bounds how much of a message a translation reply repeats.
const maxQuoteRunes = 1000

func quote(s string) string {
	if r := []rune(s); len(r) > maxQuoteRunes {
		s = string(r[:maxQuoteRunes]) + "..."
	}
	return "> " + strings.ReplaceAll(s, "\n", "\n> ")
}

func BuildTranslateUsageMessage(prefix string) *discordgo.MessageSend {
	var b strings.Builder
	fmt.Fprintf(&b, "Reply to a message and type `%stranslate <language_code>` to translate it.\n", prefix)
	fmt.Fprintf(&b, "Indian languages: %s\n", languageCodes(true))
	fmt.Fprintf(&b, "Other languages: %s\n", languageCodes(false))
	fmt.Fprintf(&b, "`%stranslate list` shows every language and `%stranslate detect` detects the language of the replied message. ", prefix, prefix)
	fmt.Fprintf(&b, "You can also use `%str` or `%strans`.", prefix, prefix)
	return text(b.String())
}

func languageCodes(indian bool) string {
	var codes []string
	for _, l := range translate.Languages {
		if l.Indian == indian {
			codes = append(codes, fmt.Sprintf("**%s** %s", l.Code, l.Name))
		}
	}
	return strings.Join(codes, ", ")
}

func BuildLanguageListMessage() *discordgo.MessageSend {
	var b strings.Builder
	b.WriteString("Supported languages:\n")
	for _, l := range translate.Languages {
		fmt.Fprintf(&b, "%s **%s** - %s (%s)\n", l.Flag, l.Code, l.Name, l.Native)
	}
	return text(strings.TrimRight(b.String(), "\n"))
}

func BuildDetectionMessage(d *translate.Detection, original string) *discordgo.MessageSend {
	l := translate.Info(d.Language)
	confidence := "Low"
	if d.Confident() {
		confidence = "High"
	}
	return text(fmt.Sprintf("Detected language: %s **%s** (%s) `%s`\nConfidence: %s\n%s",
		l.Flag, l.Name, l.Native, l.Code, confidence, quote(original)))
}

// BuildTranslationMessage shows the original next to its translation.
func BuildTranslationMessage(res *translate.Result, original, requestedBy string) *discordgo.MessageSend {
	from, to := translate.Info(res.SourceLanguage), translate.Info(res.TargetLanguage)
	var b strings.Builder
	fmt.Fprintf(&b, "%s **%s** ➜ %s **%s**\n", from.Flag, from.Name, to.Flag, to.Name)
	fmt.Fprintf(&b, "Original (%s):\n%s\n", from.Native, quote(original))
	fmt.Fprintf(&b, "Translated (%s):\n%s\n", to.Native, quote(res.Text))
	fmt.Fprintf(&b, "Requested by <@%s>", requestedBy)
	return text(b.String())
}

func BuildAlreadyTranslatedMessage(res *translate.Result) *discordgo.MessageSend {
	return text(fmt.Sprintf("The message is already in **%s**! Try translating to a different language.", translate.Info(res.TargetLanguage).Name))
}
