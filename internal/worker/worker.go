package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glizzus/jukebox/internal/generator"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/repository"
	"github.com/redis/go-redis/v9"
)

// EventHandler consumes a batch of playback events. Returning an error
// leaves the batch unacknowledged so it is delivered again.
type EventHandler interface {
	HandleEvents(ctx context.Context, events ...PlaybackEvent) error
}

type PrintingEventHandler struct{}

func (h *PrintingEventHandler) HandleEvents(ctx context.Context, events ...PlaybackEvent) error {
	for _, ev := range events {
		slog.InfoContext(
			ctx,
			"Handling playback event",
			slog.String("eventID", ev.EventID),
			slog.String("guildID", ev.GuildID),
			slog.String("track", ev.Track.String()),
			slog.String("playedAt", ev.PlayedAt.Format("2006-01-02 15:04:05")),
		)
	}
	return nil
}

// HistoryEventHandler writes events to the play history.
type HistoryEventHandler struct {
	repo repository.HistoryPersister
}

func NewHistoryEventHandler(repo repository.HistoryPersister) *HistoryEventHandler {
	return &HistoryEventHandler{repo: repo}
}

func (h *HistoryEventHandler) HandleEvents(ctx context.Context, events ...PlaybackEvent) error {
	plays := make([]repository.Play, 0, len(events))
	for _, ev := range events {
		plays = append(plays, ev.Play())
	}
	if err := h.repo.Save(ctx, plays...); err != nil {
		return fmt.Errorf("failed to save %d plays: %w", len(plays), err)
	}
	return nil
}

var (
	_ EventHandler = (*PrintingEventHandler)(nil)
	_ EventHandler = (*HistoryEventHandler)(nil)
)

// RedisPlaybackPublisher appends playback events to a Redis stream.
type RedisPlaybackPublisher struct {
	client *redis.Client
	stream string
	ids    generator.Generator[string]
	now    func() time.Time
}

func NewRedisPlaybackPublisher(client *redis.Client, stream string) *RedisPlaybackPublisher {
	return &RedisPlaybackPublisher{
		client: client,
		stream: stream,
		ids:    &generator.UUIDV4Generator{},
		now:    time.Now,
	}
}

func (p *RedisPlaybackPublisher) PublishTrackStarted(ctx context.Context, guildID string, track player.Track) error {
	ev, err := p.event(guildID, track)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ev)
}

func (p *RedisPlaybackPublisher) event(guildID string, track player.Track) (PlaybackEvent, error) {
	id, err := p.ids.Next()
	if err != nil {
		return PlaybackEvent{}, fmt.Errorf("failed to generate event id: %w", err)
	}
	return PlaybackEvent{EventID: id, GuildID: guildID, Track: track, PlayedAt: p.now()}, nil
}

func (p *RedisPlaybackPublisher) Publish(ctx context.Context, events ...PlaybackEvent) error {
	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, ev := range events {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: p.stream,
				Values: ev.values(),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish playback events: %w", err)
	}
	return nil
}

var _ player.PlaybackPublisher = (*RedisPlaybackPublisher)(nil)

// RedisPlaybackReceiver reads the playback stream as one consumer of a group.
// Entries this consumer received but never acknowledged are replayed first.
type RedisPlaybackReceiver struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	count    int64
	block    time.Duration

	replaying bool
}

func NewRedisPlaybackReceiver(ctx context.Context, client *redis.Client, stream, group, consumer string) (*RedisPlaybackReceiver, error) {
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !errors.Is(err, redis.Nil) && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group %s: %w", group, err)
	}

	return &RedisPlaybackReceiver{
		client:    client,
		stream:    stream,
		group:     group,
		consumer:  consumer,
		count:     50,
		block:     5 * time.Second,
		replaying: true,
	}, nil
}

// Receive blocks for up to the block interval and returns the next batch,
// which may be empty. Malformed entries are acknowledged and dropped.
func (r *RedisPlaybackReceiver) Receive(ctx context.Context) ([]PlaybackEvent, error) {
	start := ">"
	if r.replaying {
		start = "0"
	}

	streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, start},
		Count:    r.count,
		Block:    r.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		r.replaying = false
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read playback stream: %w", err)
	}

	var events []PlaybackEvent
	var malformed []string
	for _, s := range streams {
		for _, msg := range s.Messages {
			ev, err := parsePlaybackEvent(msg)
			if err != nil {
				slog.Warn("Dropping malformed playback event", "id", msg.ID, "err", err)
				malformed = append(malformed, msg.ID)
				continue
			}
			events = append(events, ev)
		}
	}
	if r.replaying && len(events) == 0 && len(malformed) == 0 {
		r.replaying = false
	}
	if err := r.Ack(ctx, malformed...); err != nil {
		return nil, err
	}
	return events, nil
}

// Replay makes the next Receive start again from this consumer's
// unacknowledged entries.
func (r *RedisPlaybackReceiver) Replay() {
	r.replaying = true
}

func (r *RedisPlaybackReceiver) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, r.stream, r.group, ids...).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge %d events: %w", len(ids), err)
	}
	return nil
}

// Receiver is the part of RedisPlaybackReceiver that Run drives.
type Receiver interface {
	Receive(ctx context.Context) ([]PlaybackEvent, error)
	Ack(ctx context.Context, ids ...string) error
	Replay()
}

var _ Receiver = (*RedisPlaybackReceiver)(nil)

// Run feeds received batches to handler until ctx is cancelled. A batch is
// acknowledged only after the handler succeeds. A failed batch is delivered
// again after retryDelay.
func Run(ctx context.Context, receiver Receiver, handler EventHandler, retryDelay time.Duration) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		events, err := receiver.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if len(events) == 0 {
			continue
		}

		if err := handler.HandleEvents(ctx, events...); err != nil {
			slog.Error("Failed to handle playback events", "count", len(events), "err", err)
			receiver.Replay()
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}

		ids := make([]string, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.StreamID)
		}
		if err := receiver.Ack(ctx, ids...); err != nil {
			return err
		}
	}
}
