package presenters

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/lavalink"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/repository"
	"github.com/glizzus/jukebox/internal/tts"
)

// BuildNodeStatusMessage lists the nodes. A non-zero nextAttempt is shown when
// some node is not connected.
func BuildNodeStatusMessage(enabled bool, nodes []lavalink.NodeStatus, nextAttempt time.Time) *discordgo.MessageSend {
	if !enabled {
		return text("Lavalink is disabled.")
	}
	if len(nodes) == 0 {
		return text("No Lavalink nodes are configured.")
	}

	var b strings.Builder
	b.WriteString("Lavalink nodes:\n")
	allConnected := true
	for _, n := range nodes {
		allConnected = allConnected && n.State == lavalink.StateConnected
		fmt.Fprintf(&b, "- **%s** (%s): %s", n.Name, n.Address, n.State)
		if n.State == lavalink.StateConnected {
			fmt.Fprintf(&b, ", %d players (%d playing), up %s",
				n.Stats.Players, n.Stats.PlayingPlayers, n.Stats.Uptime.Truncate(time.Second))
		}
		b.WriteString("\n")
	}
	if !allConnected && !nextAttempt.IsZero() {
		fmt.Fprintf(&b, "Next reconnect attempt <t:%d:R>", nextAttempt.Unix())
	}
	return text(strings.TrimRight(b.String(), "\n"))
}

func BuildHistoryMessage(plays []repository.Play) *discordgo.MessageSend {
	if len(plays) == 0 {
		return text("Nothing has been played here yet.")
	}

	var b strings.Builder
	b.WriteString("Recently played:\n")
	for i, p := range plays {
		t := player.Track{Title: p.Title, Author: p.Author, Duration: p.Duration, RequestedBy: p.RequestedBy}
		fmt.Fprintf(&b, "%d. %s <t:%d:R>\n", i+1, trackLine(t), p.PlayedAt.Unix())
	}
	return text(strings.TrimRight(b.String(), "\n"))
}

func BuildSpeakUsageMessage(prefix string) *discordgo.MessageSend {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: `%sspeak <text> [-lang <code>]` (up to %d characters)\nLanguages: ", prefix, tts.MaxTextLength)
	codes := make([]string, 0, len(tts.LanguageCodes))
	for _, code := range tts.LanguageCodes {
		codes = append(codes, fmt.Sprintf("`%s` %s", code, tts.Languages[code]))
	}
	b.WriteString(strings.Join(codes, ", "))
	return text(b.String())
}

// BuildVoiceNoteMessage attaches a clip for users who are not in a voice channel.
func BuildVoiceNoteMessage(clip *tts.Clip) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: fmt.Sprintf("Voice note (%s)", tts.Languages[clip.Language]),
		Files: []*discordgo.File{{
			Name:        "voice_note.mp3",
			ContentType: "audio/mpeg",
			Reader:      bytes.NewReader(clip.Audio),
		}},
	}
}
