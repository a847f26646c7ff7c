package voice

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/search"
	"github.com/kkdai/youtube/v2"
)

var ErrNotInVoice = errors.New("user is not in a voice channel")

// UserVoiceChannel returns the voice channel userID is connected to in
// guildID, as seen by the session state cache.
func UserVoiceChannel(state *discordgo.State, guildID, userID string) (string, error) {
	guild, err := state.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("unable to find guild %s in state: %w", guildID, err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, nil
		}
	}
	return "", ErrNotInVoice
}

// StreamResolver turns a track into something FFmpeg can read.
type StreamResolver interface {
	StreamURL(ctx context.Context, track player.Track) (string, error)
}

// YouTubeStreams resolves YouTube watch links to a direct audio stream.
// Every other source is assumed to be directly readable already.
type YouTubeStreams struct {
	Client *youtube.Client
}

func (y *YouTubeStreams) StreamURL(ctx context.Context, track player.Track) (string, error) {
	if !search.IsYouTubeURL(track.SourceRef) {
		return track.SourceRef, nil
	}
	client := y.Client
	if client == nil {
		client = &youtube.Client{}
	}

	video, err := client.GetVideoContext(ctx, track.SourceRef)
	if err != nil {
		return "", fmt.Errorf("youtube client error: %w", err)
	}
	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return "", errors.New("no audio formats found for video")
	}
	link, err := client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return "", fmt.Errorf("get stream URL error: %w", err)
	}
	return link, nil
}

var _ StreamResolver = (*YouTubeStreams)(nil)
