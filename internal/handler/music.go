package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/presenters"
	"github.com/glizzus/jukebox/internal/search"
	"github.com/glizzus/jukebox/internal/voice"
)

// Searcher turns a query or link into playable tracks.
type Searcher interface {
	Search(ctx context.Context, query string) search.Result
}

var _ Searcher = (*search.Searcher)(nil)

// Music implements the playback commands on top of the guild queues.
type Music struct {
	Registry *player.Registry
	Searcher Searcher
	Locate   VoiceLocator
	Prefix   string
}

// playFor queues tracks in the caller's voice channel, connecting first if
// needed. It refuses to move the bot away from a channel where it is still
// playing. handled reports that nothing started and the queue has already
// told the channel why.
func (mu *Music) playFor(ctx context.Context, m *discordgo.MessageCreate, tracks []player.Track) (position int, started, handled bool, err error) {
	channelID, err := mu.Locate(m.GuildID, m.Author.ID)
	if errors.Is(err, voice.ErrNotInVoice) {
		return 0, false, false, userErrorf("You need to be in a voice channel first!")
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("failed to find voice channel of %s: %w", m.Author.ID, err)
	}

	q := mu.Registry.Get(m.GuildID)
	position, started, err = q.JoinAndPlay(ctx, channelID, m.ChannelID, tracks...)
	var refused *player.MoveRefusedError
	var playErr *player.PlaybackError
	switch {
	case errors.As(err, &refused):
		return 0, false, false, userErrorf("I'm already playing in <#%s>.", refused.ChannelID)
	case errors.Is(err, player.ErrDegraded), errors.As(err, &playErr):
		return position, false, true, nil
	}
	return position, started, false, err
}

func (mu *Music) Play(ctx context.Context, s DiscordSession, m *discordgo.MessageCreate, args []string) error {
	if len(args) == 0 {
		return userErrorf("Usage: `%splay <song name or link>`", mu.Prefix)
	}
	query := strings.Join(args, " ")

	res := mu.Searcher.Search(ctx, query)
	if !res.OK {
		return reply(s, m, presenters.BuildSearchFailedMessage(res))
	}
	for i := range res.Tracks {
		res.Tracks[i].RequestedBy = m.Author.ID
	}
	// Searches resolve to their best match; links keep every track.
	if res.LoadType == search.LoadSearch {
		res.Tracks = res.Tracks[:1]
	}

	position, started, handled, err := mu.playFor(ctx, m, res.Tracks)
	if err != nil || handled {
		return err
	}
	return reply(s, m, presenters.BuildEnqueuedMessage(res, position, started))
}

func (mu *Music) Skip(ctx context.Context, s DiscordSession, m *discordgo.MessageCreate, _ []string) error {
	q, ok := mu.Registry.Lookup(m.GuildID)
	if !ok {
		return reply(s, m, presenters.BuildSkipMessage(false))
	}
	skipped, err := q.Skip(ctx)
	if errors.Is(err, player.ErrNotConnected) {
		return reply(s, m, presenters.BuildSkipMessage(false))
	}
	if err != nil {
		return err
	}
	return reply(s, m, presenters.BuildSkipMessage(skipped))
}

func (mu *Music) Stop(ctx context.Context, s DiscordSession, m *discordgo.MessageCreate, _ []string) error {
	q, ok := mu.Registry.Lookup(m.GuildID)
	if !ok {
		return player.ErrNotConnected
	}
	if err := q.Stop(ctx); err != nil {
		return err
	}
	return replyText(s, m, "Stopped playback and left the voice channel.")
}

func (mu *Music) setPaused(ctx context.Context, s DiscordSession, m *discordgo.MessageCreate, paused bool) error {
	q, ok := mu.Registry.Lookup(m.GuildID)
	if !ok || q.Snapshot().NowPlaying == nil {
		return userErrorf("Nothing is playing.")
	}
	var err error
	if paused {
		err = q.Pause(ctx)
	} else {
		err = q.Resume(ctx)
	}
	if err != nil {
		return err
	}
	return reply(s, m, presenters.BuildPausedMessage(paused))
}

func (mu *Music) Pause(ctx context.Context, s DiscordSession, m *discordgo.MessageCreate, _ []string) error {
	return mu.setPaused(ctx, s, m, true)
}

func (mu *Music) Resume(ctx context.Context, s DiscordSession, m *discordgo.MessageCreate, _ []string) error {
	return mu.setPaused(ctx, s, m, false)
}

func (mu *Music) snapshot(guildID string) player.Snapshot {
	if q, ok := mu.Registry.Lookup(guildID); ok {
		return q.Snapshot()
	}
	return player.Snapshot{GuildID: guildID}
}

func (mu *Music) Queue(_ context.Context, s DiscordSession, m *discordgo.MessageCreate, _ []string) error {
	return reply(s, m, presenters.BuildQueueMessage(mu.snapshot(m.GuildID)))
}

func (mu *Music) NowPlaying(_ context.Context, s DiscordSession, m *discordgo.MessageCreate, _ []string) error {
	return reply(s, m, presenters.BuildNowPlayingMessage(mu.snapshot(m.GuildID)))
}
