package lavalink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/player"
)

var ErrNoNode = errors.New("no lavalink node configured")

// VoiceJoiner is the part of the Discord session used to move the bot in
// and out of voice channels without opening a local voice connection.
type VoiceJoiner interface {
	ChannelVoiceJoinManual(gID, cID string, mute, deaf bool) error
}

type voiceInfo struct {
	sessionID string
	token     string
	endpoint  string
}

func (v voiceInfo) complete() bool {
	return v.sessionID != "" && v.token != "" && v.endpoint != ""
}

// voiceFor returns the last complete voice credentials for guildID.
func (t *Transport) voiceFor(guildID string) (voiceInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.voice[guildID]
	return info, ok && info.complete()
}

// Transport plays audio on Lavalink nodes. Register OnVoiceStateUpdate and
// OnVoiceServerUpdate as session handlers so voice credentials reach it.
type Transport struct {
	pool      *Pool
	session   VoiceJoiner
	botUserID string
	logger    *slog.Logger

	mu      sync.Mutex
	voice   map[string]voiceInfo
	waiters map[string]chan voiceInfo
	active  map[string]*connection
}

func NewTransport(pool *Pool, session VoiceJoiner, botUserID string) *Transport {
	return &Transport{
		pool:      pool,
		session:   session,
		botUserID: botUserID,
		logger:    slog.Default().With("component", "lavalink-transport"),
		voice:     make(map[string]voiceInfo),
		waiters:   make(map[string]chan voiceInfo),
		active:    make(map[string]*connection),
	}
}

func (t *Transport) OnVoiceStateUpdate(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil || v.UserID != t.botUserID {
		return
	}
	if v.ChannelID == "" {
		t.mu.Lock()
		delete(t.voice, v.GuildID)
		t.mu.Unlock()
		return
	}
	t.updateVoice(v.GuildID, func(info *voiceInfo) {
		info.sessionID = v.SessionID
	})
}

func (t *Transport) OnVoiceServerUpdate(_ *discordgo.Session, v *discordgo.VoiceServerUpdate) {
	t.updateVoice(v.GuildID, func(info *voiceInfo) {
		info.token = v.Token
		info.endpoint = v.Endpoint
	})
}

// updateVoice merges a partial update. Once both halves are known they go to
// the pending join, or straight to the node when the guild is already playing
// (Discord sends new credentials when the voice server changes).
func (t *Transport) updateVoice(guildID string, apply func(*voiceInfo)) {
	t.mu.Lock()
	info := t.voice[guildID]
	apply(&info)
	t.voice[guildID] = info
	waiter := t.waiters[guildID]
	conn := t.active[guildID]
	t.mu.Unlock()

	if !info.complete() {
		return
	}
	if waiter != nil {
		select {
		case waiter <- info:
		default:
		}
		return
	}
	if conn != nil {
		go func() {
			if err := conn.sendVoice(context.Background(), conn.currentNode(), info); err != nil {
				t.logger.Warn("Failed to forward voice update", "guildID", guildID, "err", err)
			}
		}()
	}
}

// Connect joins the channel through the gateway, waits for the voice
// credentials and hands them to the node. On failure the bot leaves the
// channel and the remote player is destroyed.
func (t *Transport) Connect(ctx context.Context, guildID, channelID string) (player.Connection, error) {
	node := t.pool.GetNode()
	if node == nil {
		return nil, &player.ConnectionError{GuildID: guildID, ChannelID: channelID, Err: ErrNoNode}
	}

	waiter := make(chan voiceInfo, 1)
	t.mu.Lock()
	delete(t.voice, guildID)
	t.waiters[guildID] = waiter
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.waiters, guildID)
		t.mu.Unlock()
	}()

	fail := func(err error) (player.Connection, error) {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		if derr := node.DestroyPlayer(cleanupCtx, guildID); derr != nil && !errors.Is(derr, ErrNodeNotReady) {
			t.logger.Warn("Failed to destroy remote player", "guildID", guildID, "err", derr)
		}
		if lerr := t.session.ChannelVoiceJoinManual(guildID, "", false, true); lerr != nil {
			t.logger.Warn("Failed to leave voice channel", "guildID", guildID, "err", lerr)
		}
		return nil, &player.ConnectionError{GuildID: guildID, ChannelID: channelID, Err: err}
	}

	if err := t.session.ChannelVoiceJoinManual(guildID, channelID, false, true); err != nil {
		return nil, &player.ConnectionError{GuildID: guildID, ChannelID: channelID, Err: err}
	}

	var info voiceInfo
	select {
	case info = <-waiter:
	case <-ctx.Done():
		return fail(fmt.Errorf("timed out waiting for voice credentials: %w", ctx.Err()))
	}

	conn := &connection{
		transport: t,
		node:      node,
		guildID:   guildID,
		channelID: channelID,
		logger:    t.logger.With("guildID", guildID),
	}
	if err := conn.sendVoice(ctx, node, info); err != nil {
		return fail(err)
	}
	conn.sessionID = node.SessionID()

	t.mu.Lock()
	t.active[guildID] = conn
	t.mu.Unlock()
	conn.unsubscribe = t.pool.Subscribe(guildID, conn.dispatch)
	return conn, nil
}

var _ player.Transport = (*Transport)(nil)

const eventTimeout = player.DefaultConnectTimeout

type connection struct {
	transport   *Transport
	guildID     string
	channelID   string
	unsubscribe func()
	logger      *slog.Logger

	mu sync.Mutex
	// node holds the remote player, created under sessionID.
	node          *Node
	sessionID     string
	listener      func(player.Event)
	lastException string
	closed        bool
}

func (c *connection) sendVoice(ctx context.Context, node *Node, info voiceInfo) error {
	return node.UpdatePlayer(ctx, c.guildID, PlayerUpdate{
		Voice: &VoiceState{Token: info.token, Endpoint: info.endpoint, SessionID: info.sessionID},
	})
}

func (c *connection) currentNode() *Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.node
}

// player returns the node holding the guild's player. When that node lost
// its session, the player is recreated on a connected node from the voice
// credentials Discord already sent.
func (c *connection) player(ctx context.Context) (*Node, error) {
	c.mu.Lock()
	node, sessionID := c.node, c.sessionID
	c.mu.Unlock()
	if node.State() == StateConnected && node.SessionID() == sessionID {
		return node, nil
	}

	next := c.transport.pool.GetNode()
	if next == nil || next.State() != StateConnected {
		return nil, ErrNodeNotReady
	}
	info, ok := c.transport.voiceFor(c.guildID)
	if !ok {
		return nil, fmt.Errorf("no voice credentials for guild %s", c.guildID)
	}
	if err := c.sendVoice(ctx, next, info); err != nil {
		return nil, fmt.Errorf("failed to move player to node %s: %w", next.Name(), err)
	}

	c.mu.Lock()
	c.node, c.sessionID = next, next.SessionID()
	c.mu.Unlock()
	c.logger.Info("Moved player to lavalink node", "node", next.Name())
	return next, nil
}

func (c *connection) update(ctx context.Context, update PlayerUpdate) error {
	node, err := c.player(ctx)
	if err != nil {
		return err
	}
	return node.UpdatePlayer(ctx, c.guildID, update)
}

func (c *connection) ChannelID() string {
	return c.channelID
}

func (c *connection) Play(ctx context.Context, track player.Track) error {
	encoded := track.SourceRef
	paused := false
	return c.update(ctx, PlayerUpdate{
		Track:  &TrackUpdate{Encoded: &encoded},
		Paused: &paused,
	})
}

func (c *connection) Stop(ctx context.Context) error {
	return c.update(ctx, PlayerUpdate{Track: &TrackUpdate{}})
}

func (c *connection) SetPaused(ctx context.Context, paused bool) error {
	return c.update(ctx, PlayerUpdate{Paused: &paused})
}

func (c *connection) Listen(handler func(player.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = handler
}

func (c *connection) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	t := c.transport
	t.mu.Lock()
	if t.active[c.guildID] == c {
		delete(t.active, c.guildID)
	}
	delete(t.voice, c.guildID)
	t.mu.Unlock()

	var errs []error
	if err := c.currentNode().DestroyPlayer(ctx, c.guildID); err != nil && !errors.Is(err, ErrNodeNotReady) {
		errs = append(errs, fmt.Errorf("failed to destroy remote player: %w", err))
	}
	if err := t.session.ChannelVoiceJoinManual(c.guildID, "", false, true); err != nil {
		errs = append(errs, fmt.Errorf("failed to leave voice channel: %w", err))
	}
	return errors.Join(errs...)
}

// dispatch runs on the node's websocket goroutine.
func (c *connection) dispatch(ev NodeEvent) {
	out, ok := c.translate(ev)
	if !ok {
		return
	}
	c.mu.Lock()
	listener := c.listener
	c.mu.Unlock()
	if listener != nil {
		listener(out)
	}
}

// translate maps node events onto queue events. An end event with reason
// "replaced" belongs to a track superseded by our own Play call, and the
// "loadFailed" end that follows an exception has already been reported.
func (c *connection) translate(ev NodeEvent) (player.Event, bool) {
	var track player.Track
	if ev.Track != nil {
		track = ev.Track.PlayerTrack()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case eventTrackStart:
		c.lastException = ""
		return player.Event{Type: player.EventStart, Track: track}, true
	case eventTrackEnd:
		if ev.Reason == "replaced" {
			return player.Event{}, false
		}
		if ev.Reason == "loadFailed" && c.lastException != "" && c.lastException == track.SourceRef {
			c.lastException = ""
			return player.Event{}, false
		}
		return player.Event{Type: player.EventEnd, Track: track, Detail: ev.Reason}, true
	case eventTrackException:
		c.lastException = track.SourceRef
		detail := "unknown error"
		if ev.Exception != nil && ev.Exception.Message != "" {
			detail = ev.Exception.Message
		}
		return player.Event{Type: player.EventException, Track: track, Detail: detail}, true
	case eventTrackStuck:
		return player.Event{Type: player.EventStuck, Track: track}, true
	case eventNodeLost:
		if ev.Node != c.node.Name() {
			return player.Event{}, false
		}
		c.lastException = ""
		return player.Event{Type: player.EventClosed, Detail: fmt.Sprintf("lavalink node %s lost its session", ev.Node)}, true
	case eventWebSocketClosed:
		return player.Event{Type: player.EventClosed, Detail: fmt.Sprintf("voice socket closed with code %d: %s", ev.Code, ev.Reason)}, true
	default:
		return player.Event{}, false
	}
}
