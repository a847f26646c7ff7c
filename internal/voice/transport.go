package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/opus"
	"github.com/glizzus/jukebox/internal/player"
)

// VoiceJoiner is the part of the Discord session that opens voice connections.
type VoiceJoiner interface {
	ChannelVoiceJoin(gID, cID string, mute, deaf bool) (*discordgo.VoiceConnection, error)
}

// EncodeFunc starts transcoding source into length-prefixed Opus frames.
type EncodeFunc func(ctx context.Context, source string) (io.ReadCloser, error)

const readyPollInterval = 50 * time.Millisecond

// Transport plays audio through the bot's own voice connection, encoding
// with FFmpeg on this host.
type Transport struct {
	session VoiceJoiner
	streams StreamResolver
	encode  EncodeFunc
	logger  *slog.Logger
}

func NewTransport(session VoiceJoiner, streams StreamResolver) *Transport {
	return &Transport{
		session: session,
		streams: streams,
		encode:  opus.EncodeURL,
		logger:  slog.Default().With("component", "voice-transport"),
	}
}

// Connect joins the channel and waits until the voice connection reports
// ready or ctx is done. A connection that never becomes ready is torn down.
func (t *Transport) Connect(ctx context.Context, guildID, channelID string) (player.Connection, error) {
	vc, err := t.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		if vc != nil {
			t.disconnect(vc, guildID)
		}
		return nil, &player.ConnectionError{GuildID: guildID, ChannelID: channelID, Err: err}
	}
	if err := waitReady(ctx, vc); err != nil {
		t.disconnect(vc, guildID)
		return nil, &player.ConnectionError{GuildID: guildID, ChannelID: channelID, Err: err}
	}
	return newConnection(channelID, vc, vc.OpusSend, t.streams, t.encode, t.logger.With("guildID", guildID)), nil
}

func (t *Transport) disconnect(vc *discordgo.VoiceConnection, guildID string) {
	if err := vc.Disconnect(); err != nil {
		t.logger.Warn("Failed to disconnect", "guildID", guildID, "err", err)
	}
}

func waitReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for {
		vc.RLock()
		ready := vc.Ready
		vc.RUnlock()
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("voice connection never became ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

var _ player.Transport = (*Transport)(nil)

// voiceConn is the part of *discordgo.VoiceConnection a connection drives.
type voiceConn interface {
	Speaking(bool) error
	Disconnect() error
}

type playback struct {
	cancel   context.CancelFunc
	control  *opus.Control
	replaced bool
}

type connection struct {
	channelID string
	vc        voiceConn
	send      chan<- []byte
	streams   StreamResolver
	encode    EncodeFunc
	logger    *slog.Logger

	mu       sync.Mutex
	current  *playback
	listener func(player.Event)
	closed   bool
}

func newConnection(channelID string, vc voiceConn, send chan<- []byte, streams StreamResolver, encode EncodeFunc, logger *slog.Logger) *connection {
	return &connection{
		channelID: channelID,
		vc:        vc,
		send:      send,
		streams:   streams,
		encode:    encode,
		logger:    logger,
	}
}

func (c *connection) ChannelID() string {
	return c.channelID
}

// Play replaces whatever is playing. The replaced track reports no end event.
func (c *connection) Play(ctx context.Context, track player.Track) error {
	source := track.SourceRef
	if c.streams != nil {
		var err error
		if source, err = c.streams.StreamURL(ctx, track); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("voice connection is closed")
	}
	c.cancelLocked(true)

	playCtx, cancel := context.WithCancel(context.Background())
	frames, err := c.encode(playCtx, source)
	if err != nil {
		cancel()
		return fmt.Errorf("unable to start encoder: %w", err)
	}
	pb := &playback{cancel: cancel, control: &opus.Control{}}
	c.current = pb
	go c.run(playCtx, pb, track, frames)
	return nil
}

func (c *connection) run(ctx context.Context, pb *playback, track player.Track, frames io.ReadCloser) {
	defer frames.Close()
	defer pb.cancel()

	c.emit(pb, player.Event{Type: player.EventStart, Track: track})
	if err := c.vc.Speaking(true); err != nil {
		c.logger.Warn("Failed to set speaking state", "err", err)
	}
	err := opus.StreamToVoice(ctx, opus.NewFrameReader(frames), c.send, pb.control)
	if serr := c.vc.Speaking(false); serr != nil {
		c.logger.Debug("Failed to clear speaking state", "err", serr)
	}

	switch {
	case err == nil:
		c.emit(pb, player.Event{Type: player.EventEnd, Track: track, Detail: "finished"})
	case errors.Is(err, context.Canceled):
		c.emit(pb, player.Event{Type: player.EventEnd, Track: track, Detail: "stopped"})
	case errors.Is(err, opus.ErrVoiceConnClosed):
		c.emit(pb, player.Event{Type: player.EventStuck, Track: track, Detail: err.Error()})
	default:
		c.emit(pb, player.Event{Type: player.EventException, Track: track, Detail: err.Error()})
	}
}

// emit drops events of a playback that was replaced or whose connection closed.
func (c *connection) emit(pb *playback, ev player.Event) {
	c.mu.Lock()
	if pb.replaced || c.closed {
		c.mu.Unlock()
		return
	}
	listener := c.listener
	c.mu.Unlock()
	if listener != nil {
		listener(ev)
	}
}

func (c *connection) cancelLocked(replaced bool) {
	if c.current == nil {
		return
	}
	c.current.replaced = replaced
	c.current.cancel()
	c.current = nil
}

func (c *connection) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(false)
	return nil
}

func (c *connection) SetPaused(_ context.Context, paused bool) error {
	c.mu.Lock()
	pb := c.current
	c.mu.Unlock()
	if pb == nil {
		return nil
	}
	pb.control.SetPaused(paused)
	return c.vc.Speaking(!paused)
}

func (c *connection) Listen(handler func(player.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = handler
}

func (c *connection) Close(context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancelLocked(true)
	c.mu.Unlock()

	if err := c.vc.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect voice: %w", err)
	}
	return nil
}
