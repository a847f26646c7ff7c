package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/opus"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/google/go-cmp/cmp"
)

type fakeVoice struct {
	mu          sync.Mutex
	speaking    []bool
	disconnects int
}

func (f *fakeVoice) Speaking(b bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speaking = append(f.speaking, b)
	return nil
}

func (f *fakeVoice) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

// fakeEncoder writes frames into a pipe. With hold set it keeps the stream
// open until the playback context is cancelled, like a long FFmpeg run.
type fakeEncoder struct {
	frames [][]byte
	hold   bool
	err    error

	mu      sync.Mutex
	sources []string
}

func (f *fakeEncoder) encode(ctx context.Context, source string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.sources = append(f.sources, source)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	pr, pw := io.Pipe()
	go func() {
		for _, frame := range f.frames {
			if err := opus.WriteFrame(pw, frame); err != nil {
				return
			}
		}
		if f.hold {
			<-ctx.Done()
		}
		pw.Close()
	}()
	return pr, nil
}

type staticStreams struct {
	prefix string
	err    error
}

func (s staticStreams) StreamURL(_ context.Context, track player.Track) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.prefix + track.SourceRef, nil
}

type harness struct {
	conn   *connection
	voice  *fakeVoice
	enc    *fakeEncoder
	send   chan []byte
	events chan player.Event
}

func newHarness(enc *fakeEncoder, streams StreamResolver) *harness {
	h := &harness{
		voice:  &fakeVoice{},
		enc:    enc,
		send:   make(chan []byte, 16),
		events: make(chan player.Event, 16),
	}
	h.conn = newConnection("voice-1", h.voice, h.send, streams, enc.encode, slog.Default())
	h.conn.Listen(func(ev player.Event) { h.events <- ev })
	return h
}

func (h *harness) next(t *testing.T) player.Event {
	t.Helper()
	select {
	case ev := <-h.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for an event")
		return player.Event{}
	}
}

func (h *harness) expectNoEvent(t *testing.T) {
	t.Helper()
	select {
	case ev := <-h.events:
		t.Fatalf("unexpected event %s for %s", ev.Type, ev.Track.Title)
	case <-time.After(50 * time.Millisecond):
	}
}

func track(title string) player.Track {
	return player.Track{Title: title, SourceRef: "https://cdn.example.com/" + title}
}

func TestConnectionPlaysToEnd(t *testing.T) {
	h := newHarness(&fakeEncoder{frames: [][]byte{{1}, {2}, {3}}}, staticStreams{prefix: "stream:"})

	if err := h.conn.Play(context.Background(), track("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := h.next(t)
	end := h.next(t)
	got := []string{start.Type.String() + ":" + start.Detail, end.Type.String() + ":" + end.Detail}
	if diff := cmp.Diff([]string{"start:", "end:finished"}, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if len(h.send) != 3 {
		t.Errorf("expected 3 frames sent, got %d", len(h.send))
	}
	if diff := cmp.Diff([]string{"stream:https://cdn.example.com/a"}, h.enc.sources); diff != "" {
		t.Errorf("encoder sources mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectionStopReportsEnd(t *testing.T) {
	h := newHarness(&fakeEncoder{hold: true}, nil)

	if err := h.conn.Play(context.Background(), track("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev := h.next(t); ev.Type != player.EventStart {
		t.Fatalf("expected start, got %s", ev.Type)
	}
	if err := h.conn.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := h.next(t)
	if ev.Type != player.EventEnd || ev.Detail != "stopped" {
		t.Errorf("expected end:stopped, got %s:%s", ev.Type, ev.Detail)
	}
}

func TestConnectionReplaceSuppressesEnd(t *testing.T) {
	h := newHarness(&fakeEncoder{hold: true}, nil)
	ctx := context.Background()

	if err := h.conn.Play(ctx, track("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev := h.next(t); ev.Track.Title != "a" {
		t.Fatalf("expected start of a, got %s", ev.Track.Title)
	}
	if err := h.conn.Play(ctx, track("b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := h.next(t)
	if ev.Type != player.EventStart || ev.Track.Title != "b" {
		t.Errorf("expected start of b, got %s of %s", ev.Type, ev.Track.Title)
	}
	h.expectNoEvent(t)
}

func TestConnectionPause(t *testing.T) {
	h := newHarness(&fakeEncoder{hold: true}, nil)
	ctx := context.Background()

	if err := h.conn.SetPaused(ctx, true); err != nil {
		t.Fatalf("expected pause without a track to be a no-op, got %v", err)
	}
	if err := h.conn.Play(ctx, track("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.next(t)
	if err := h.conn.SetPaused(ctx, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.conn.current.control.Paused() {
		t.Errorf("expected the stream to be paused")
	}
	if err := h.conn.SetPaused(ctx, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.conn.current.control.Paused() {
		t.Errorf("expected the stream to be resumed")
	}
}

func TestConnectionPlayErrors(t *testing.T) {
	resolveErr := errors.New("no formats")
	encodeErr := errors.New("ffmpeg missing")

	tests := []struct {
		name    string
		streams StreamResolver
		enc     *fakeEncoder
		want    error
	}{
		{name: "stream lookup fails", streams: staticStreams{err: resolveErr}, enc: &fakeEncoder{}, want: resolveErr},
		{name: "encoder fails", enc: &fakeEncoder{err: encodeErr}, want: encodeErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.enc, tt.streams)
			if err := h.conn.Play(context.Background(), track("a")); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			h.expectNoEvent(t)
		})
	}
}

func TestConnectionClose(t *testing.T) {
	h := newHarness(&fakeEncoder{hold: true}, nil)
	ctx := context.Background()

	if err := h.conn.Play(ctx, track("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.next(t)
	if err := h.conn.Close(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.conn.Close(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.expectNoEvent(t)

	if h.voice.disconnects != 1 {
		t.Errorf("expected one disconnect, got %d", h.voice.disconnects)
	}
	if err := h.conn.Play(ctx, track("b")); err == nil {
		t.Errorf("expected play on a closed connection to fail")
	}
}

type fakeJoiner struct {
	vc  *discordgo.VoiceConnection
	err error
}

func (f *fakeJoiner) ChannelVoiceJoin(_, _ string, _, _ bool) (*discordgo.VoiceConnection, error) {
	return f.vc, f.err
}

func TestTransportConnect(t *testing.T) {
	vc := &discordgo.VoiceConnection{Ready: true, OpusSend: make(chan []byte, 1)}
	transport := NewTransport(&fakeJoiner{vc: vc}, nil)

	conn, err := transport.Connect(context.Background(), "guild-1", "voice-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.ChannelID() != "voice-1" {
		t.Errorf("expected voice-1, got %s", conn.ChannelID())
	}
}

func TestTransportConnectJoinError(t *testing.T) {
	joinErr := errors.New("missing permissions")
	transport := NewTransport(&fakeJoiner{err: joinErr}, nil)

	_, err := transport.Connect(context.Background(), "guild-1", "voice-1")
	var connErr *player.ConnectionError
	if !errors.As(err, &connErr) || !errors.Is(err, joinErr) {
		t.Fatalf("expected ConnectionError wrapping the join error, got %v", err)
	}
	if connErr.ChannelID != "voice-1" {
		t.Errorf("expected channel voice-1, got %s", connErr.ChannelID)
	}
}
