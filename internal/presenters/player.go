package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/search"
)

// maxQueueLines bounds how many pending tracks the queue message lists.
const maxQueueLines = 10

func text(content string) *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: content}
}

func trackLine(t player.Track) string {
	line := fmt.Sprintf("**%s** `[%s]`", t.String(), player.FormatDuration(t.Duration))
	if t.RequestedBy != "" {
		line += fmt.Sprintf(" requested by <@%s>", t.RequestedBy)
	}
	return line
}

func BuildQueueMessage(s player.Snapshot) *discordgo.MessageSend {
	if s.NowPlaying == nil && len(s.Pending) == 0 {
		return text("The queue is empty.")
	}

	var b strings.Builder
	if s.NowPlaying != nil {
		fmt.Fprintf(&b, "Now playing: %s\n", trackLine(*s.NowPlaying))
	}
	if len(s.Pending) == 0 {
		b.WriteString("Nothing else is queued.")
		return text(b.String())
	}

	b.WriteString("Up next:\n")
	for i, t := range s.Pending {
		if i == maxQueueLines {
			fmt.Fprintf(&b, "...and %d more", len(s.Pending)-maxQueueLines)
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, trackLine(t))
	}
	return text(strings.TrimRight(b.String(), "\n"))
}

func BuildNowPlayingMessage(s player.Snapshot) *discordgo.MessageSend {
	if s.NowPlaying == nil {
		return text("Nothing is playing right now.")
	}
	content := "Now playing: " + trackLine(*s.NowPlaying)
	if link := s.NowPlaying.Link(); link != "" {
		content += "\n<" + link + ">"
	}
	return text(content)
}

// BuildEnqueuedMessage reports what a play command added. position is the
// 1-based queue position of the first track.
func BuildEnqueuedMessage(res search.Result, position int, started bool) *discordgo.MessageSend {
	first := res.Tracks[0]
	switch {
	case res.LoadType == search.LoadPlaylist && len(res.Tracks) > 1:
		return text(fmt.Sprintf("Queued **%d** tracks starting with **%s**.", len(res.Tracks), first.String()))
	case started:
		return text(fmt.Sprintf("Playing **%s** `[%s]`", first.String(), player.FormatDuration(first.Duration)))
	default:
		return text(fmt.Sprintf("Queued **%s** `[%s]` at position %d.", first.String(), player.FormatDuration(first.Duration), position))
	}
}

func BuildSearchFailedMessage(res search.Result) *discordgo.MessageSend {
	switch res.LoadType {
	case search.LoadNoMatches, search.LoadEmpty:
		return text(search.NoMatchesMessage)
	case search.LoadDisabled, search.LoadNoNode:
		return text("Search is unavailable right now: " + res.Message)
	default:
		msg := res.Message
		if msg == "" {
			msg = "unknown error"
		}
		return text("Search failed: " + msg)
	}
}

func BuildPausedMessage(paused bool) *discordgo.MessageSend {
	if paused {
		return text("Paused.")
	}
	return text("Resumed.")
}

func BuildSkipMessage(skipped bool) *discordgo.MessageSend {
	if skipped {
		return text("Skipped.")
	}
	return text("Nothing is playing.")
}
