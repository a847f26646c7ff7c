package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/glizzus/jukebox/internal/schedule"
)

type State int

const (
	StateIdle State = iota
	StatePlaying
)

func (s State) String() string {
	if s == StatePlaying {
		return "playing"
	}
	return "idle"
}

// Snapshot is a point-in-time copy of a queue's observable state.
type Snapshot struct {
	GuildID    string
	State      State
	NowPlaying *Track
	Pending    []Track
	Connected  bool
	ChannelID  string
	Degraded   bool
}

// GuildQueue is the playback queue of a single guild.
//
// Every mutation, including the handling of transport events and the idle
// timer, happens under one mutex, so at most one advance is in flight per
// guild. Transport calls are made while holding it; connections deliver
// events on their own goroutine and therefore never re-enter the lock.
type GuildQueue struct {
	guildID   string
	transport Transport
	opts      options
	logger    *slog.Logger

	mu          sync.Mutex
	pending     []Track
	nowPlaying  *Track
	state       State
	conn        Connection
	bound       bool
	textChannel string
	idleTimer   schedule.Timer
	idleGen     uint64
	failures    int
	degraded    bool
}

func newGuildQueue(guildID string, transport Transport, opts options) *GuildQueue {
	return &GuildQueue{
		guildID:   guildID,
		transport: transport,
		opts:      opts,
		logger:    opts.logger.With("guildID", guildID),
	}
}

func (q *GuildQueue) GuildID() string {
	return q.guildID
}

// SetTextChannel records where notices for this guild are sent.
func (q *GuildQueue) SetTextChannel(channelID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.textChannel = channelID
}

// Connect joins the voice channel. It is a no-op when the queue is already
// connected to channelID. Connecting to another channel releases the
// current connection first.
func (q *GuildQueue) Connect(ctx context.Context, channelID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.connectLocked(ctx, channelID)
}

func (q *GuildQueue) connectLocked(ctx context.Context, channelID string) error {
	if q.conn != nil && q.conn.ChannelID() == channelID {
		return nil
	}
	if q.conn != nil {
		q.logger.Info("Moving to another voice channel", "from", q.conn.ChannelID(), "to", channelID)
		q.releaseLocked(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, q.opts.connectTimeout)
	defer cancel()

	conn, err := q.transport.Connect(ctx, q.guildID, channelID)
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return err
		}
		return &ConnectionError{GuildID: q.guildID, ChannelID: channelID, Err: err}
	}

	q.conn = conn
	q.bound = false
	q.bindLocked(conn)
	q.logger.Info("Connected to voice channel", "channelID", channelID)
	return nil
}

// bindLocked registers the event listener once per connection handle.
func (q *GuildQueue) bindLocked(conn Connection) {
	if q.bound {
		return
	}
	conn.Listen(func(ev Event) {
		q.handleEvent(conn, ev)
	})
	q.bound = true
}

// Enqueue appends a track without starting playback and returns its
// 1-based position among the pending tracks.
func (q *GuildQueue) Enqueue(track Track) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, track)
	return len(q.pending)
}

// EnqueueAndPlay appends tracks and starts playback if nothing is playing.
// Both steps happen under the same lock, so concurrent callers cannot start
// two tracks. position is the 1-based pending position of the last track
// appended, and started reports whether this call started playback.
//
// An explicit enqueue clears the degraded state. When every track submitted
// by this call failed and the queue ran dry, the last *PlaybackError is
// returned.
func (q *GuildQueue) EnqueueAndPlay(ctx context.Context, tracks ...Track) (position int, started bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueueAndPlayLocked(ctx, tracks...)
}

// JoinAndPlay connects to voiceChannelID and enqueues tracks in one critical
// section. It returns a *MoveRefusedError instead of leaving another voice
// channel while a track is playing there. Notices go to textChannelID from
// then on.
func (q *GuildQueue) JoinAndPlay(ctx context.Context, voiceChannelID, textChannelID string, tracks ...Track) (position int, started bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn != nil && q.conn.ChannelID() != voiceChannelID && q.state == StatePlaying {
		return 0, false, &MoveRefusedError{GuildID: q.guildID, ChannelID: q.conn.ChannelID()}
	}
	q.textChannel = textChannelID
	if err := q.connectLocked(ctx, voiceChannelID); err != nil {
		return 0, false, err
	}
	return q.enqueueAndPlayLocked(ctx, tracks...)
}

func (q *GuildQueue) enqueueAndPlayLocked(ctx context.Context, tracks ...Track) (position int, started bool, err error) {
	q.pending = append(q.pending, tracks...)
	position = len(q.pending)
	q.degraded = false
	q.failures = 0

	if q.state == StatePlaying {
		return position, false, nil
	}
	if q.conn == nil {
		return position, false, ErrNotConnected
	}
	if err := q.advanceLocked(ctx); err != nil {
		return position, false, err
	}
	return position, q.state == StatePlaying, nil
}

// PlayNext starts the head of the queue if nothing is playing.
func (q *GuildQueue) PlayNext(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == StatePlaying {
		return nil
	}
	return q.advanceLocked(ctx)
}

// advanceLocked pops pending tracks until one is submitted successfully or
// the queue runs dry. Tracks that keep failing are skipped with a notice,
// and running dry after a skip returns the last skip's error.
func (q *GuildQueue) advanceLocked(ctx context.Context) error {
	q.nowPlaying = nil
	q.state = StateIdle

	var skipped error
	for {
		if q.degraded {
			return ErrDegraded
		}
		if len(q.pending) == 0 {
			q.logger.Debug("Queue is empty")
			q.armIdleLocked()
			return skipped
		}
		if q.conn == nil {
			return ErrNotConnected
		}

		next := q.pending[0]
		q.pending = q.pending[1:]
		q.cancelIdleLocked()

		err := q.submitLocked(ctx, next)
		if err == nil {
			q.nowPlaying = &next
			q.state = StatePlaying
			q.failures = 0
			return nil
		}

		q.failures++
		q.logger.Error("Skipping track", "track", next.String(), "failures", q.failures, "err", err)
		if q.failures >= q.opts.maxConsecutiveFailures {
			q.degraded = true
			q.pending = nil
			q.notifyLocked(fmt.Sprintf("Playback stopped after %d tracks in a row failed to play. Use play again to retry.", q.failures))
			q.armIdleLocked()
			return fmt.Errorf("%w after %d consecutive failures: %w", ErrDegraded, q.failures, err)
		}
		q.notifyLocked(fmt.Sprintf("Could not play **%s**, skipping.", next.String()))
		skipped = err
	}
}

func (q *GuildQueue) submitLocked(ctx context.Context, track Track) error {
	var err error
	for attempt := 0; attempt <= q.opts.maxTrackRetries; attempt++ {
		if err = q.conn.Play(ctx, track); err == nil {
			return nil
		}
		q.logger.Warn("Failed to submit track", "track", track.String(), "attempt", attempt+1, "err", err)
		if ctx.Err() != nil {
			break
		}
	}
	return &PlaybackError{Track: track, Err: err}
}

// Skip stops the current track. The transport's end event then advances
// the queue. It reports false when nothing was playing.
func (q *GuildQueue) Skip(ctx context.Context) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn == nil {
		return false, ErrNotConnected
	}
	if q.nowPlaying == nil {
		return false, nil
	}
	if err := q.conn.Stop(ctx); err != nil {
		return false, &PlaybackError{Track: *q.nowPlaying, Err: err}
	}
	return true, nil
}

// Stop clears the queue, stops playback and leaves the voice channel.
func (q *GuildQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = nil
	q.degraded = false
	q.failures = 0

	if q.conn == nil {
		q.cancelIdleLocked()
		q.nowPlaying = nil
		q.state = StateIdle
		return ErrNotConnected
	}
	if q.nowPlaying != nil {
		if err := q.conn.Stop(ctx); err != nil {
			q.logger.Warn("Failed to stop playback", "err", err)
		}
	}
	q.releaseLocked(ctx)
	return nil
}

func (q *GuildQueue) Pause(ctx context.Context) error {
	return q.setPaused(ctx, true)
}

func (q *GuildQueue) Resume(ctx context.Context) error {
	return q.setPaused(ctx, false)
}

func (q *GuildQueue) setPaused(ctx context.Context, paused bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.conn == nil {
		return ErrNotConnected
	}
	if err := q.conn.SetPaused(ctx, paused); err != nil {
		return fmt.Errorf("failed to set paused=%t: %w", paused, err)
	}
	return nil
}

func (q *GuildQueue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := Snapshot{
		GuildID:   q.guildID,
		State:     q.state,
		Pending:   slices.Clone(q.pending),
		Connected: q.conn != nil,
		Degraded:  q.degraded,
	}
	if q.nowPlaying != nil {
		current := *q.nowPlaying
		snap.NowPlaying = &current
	}
	if q.conn != nil {
		snap.ChannelID = q.conn.ChannelID()
	}
	return snap
}

func (q *GuildQueue) handleEvent(conn Connection, ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	logger := q.logger.With("event", ev.Type.String(), "track", ev.Track.String())
	if q.conn != conn {
		logger.Debug("Ignoring event from released connection")
		return
	}
	if q.nowPlaying == nil {
		logger.Debug("Ignoring event while idle")
		return
	}
	if ev.Track.SourceRef != "" && ev.Track.SourceRef != q.nowPlaying.SourceRef {
		logger.Debug("Ignoring stale event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	switch ev.Type {
	case EventStart:
		logger.Info("Track started")
		if q.opts.announce {
			q.notifyLocked(fmt.Sprintf("Now playing: **%s**", q.nowPlaying.String()))
		}
		if q.opts.publisher != nil {
			if err := q.opts.publisher.PublishTrackStarted(ctx, q.guildID, *q.nowPlaying); err != nil {
				logger.Warn("Failed to publish playback event", "err", err)
			}
		}
		return
	case EventException:
		logger.Error("Track failed during playback", "detail", ev.Detail)
		q.notifyLocked(fmt.Sprintf("Error playing **%s**, skipping.", q.nowPlaying.String()))
	case EventStuck:
		logger.Warn("Track got stuck", "detail", ev.Detail)
	default:
		logger.Info("Track finished", "detail", ev.Detail)
	}

	if err := q.advanceLocked(ctx); err != nil {
		logger.Error("Failed to advance queue", "err", err)
	}
}

func (q *GuildQueue) notifyLocked(message string) {
	if q.opts.notifier == nil || q.textChannel == "" {
		return
	}
	if err := q.opts.notifier.Notify(q.textChannel, message); err != nil {
		q.logger.Warn("Failed to send notice", "channelID", q.textChannel, "err", err)
	}
}

// armIdleLocked schedules the connection release. The generation counter
// lets a firing timer detect that it was superseded or cancelled.
func (q *GuildQueue) armIdleLocked() {
	q.cancelIdleLocked()
	if q.conn == nil {
		return
	}
	gen := q.idleGen
	q.idleTimer = q.opts.afterFunc(q.opts.idleTimeout, func() {
		q.onIdle(gen)
	})
}

func (q *GuildQueue) cancelIdleLocked() {
	if q.idleTimer != nil {
		q.idleTimer.Stop()
		q.idleTimer = nil
	}
	q.idleGen++
}

func (q *GuildQueue) onIdle(gen uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if gen != q.idleGen || q.conn == nil || q.nowPlaying != nil || len(q.pending) > 0 {
		return
	}
	q.idleTimer = nil
	q.logger.Info("Leaving voice channel after idle timeout", "timeout", q.opts.idleTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	q.releaseLocked(ctx)
}

// releaseLocked closes the connection handle. Close errors are logged only.
func (q *GuildQueue) releaseLocked(ctx context.Context) {
	q.cancelIdleLocked()
	conn := q.conn
	q.conn = nil
	q.bound = false
	q.nowPlaying = nil
	q.state = StateIdle
	if conn == nil {
		return
	}
	if err := conn.Close(ctx); err != nil {
		q.logger.Warn("Failed to release voice connection", "err", err)
	}
}
