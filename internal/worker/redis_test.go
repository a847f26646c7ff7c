package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/worker"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client
}

func titles(events []worker.PlaybackEvent) []string {
	var out []string
	for _, ev := range events {
		out = append(out, ev.Track.Title)
	}
	return out
}

func TestRedisPlaybackStream(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)
	const stream, group = "test_playback", "test_group"

	receiver, err := worker.NewRedisPlaybackReceiver(ctx, client, stream, group, "consumer-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// creating the group again must not fail
	if _, err := worker.NewRedisPlaybackReceiver(ctx, client, stream, group, "consumer-1"); err != nil {
		t.Fatalf("expected an existing group to be reused, got %v", err)
	}

	publisher := worker.NewRedisPlaybackPublisher(client, stream)
	for _, title := range []string{"One", "Two"} {
		track := player.Track{Title: title, SourceRef: "enc-" + title, Duration: 3 * time.Minute}
		if err := publisher.PublishTrackStarted(ctx, "guild-1", track); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: map[string]any{"junk": "1"}}).Err(); err != nil {
		t.Fatalf("failed to add junk entry: %v", err)
	}

	// the group starts from the beginning, so the pending read sees nothing
	// and the next one gets the new entries
	var events []worker.PlaybackEvent
	for range 3 {
		batch, err := receiver.Receive(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		events = append(events, batch...)
		if len(events) > 0 {
			break
		}
	}
	if diff := cmp.Diff([]string{"One", "Two"}, titles(events)); diff != "" {
		t.Fatalf("received mismatch (-want +got):\n%s", diff)
	}
	if events[0].GuildID != "guild-1" || events[0].Track.Duration != 3*time.Minute || events[0].EventID == "" {
		t.Errorf("unexpected event %+v", events[0])
	}

	t.Run("Unacknowledged events are replayed", func(t *testing.T) {
		receiver.Replay()
		replayed, err := receiver.Receive(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"One", "Two"}, titles(replayed)); diff != "" {
			t.Errorf("replayed mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Acknowledged events leave the pending list", func(t *testing.T) {
		if err := receiver.Ack(ctx, events[0].StreamID, events[1].StreamID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pending, err := client.XPending(ctx, stream, group).Result()
		if err != nil {
			t.Fatalf("failed to read pending: %v", err)
		}
		if pending.Count != 0 {
			t.Errorf("expected nothing pending, got %d", pending.Count)
		}
	})
}
