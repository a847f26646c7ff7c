package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/glizzus/jukebox/internal/schedule"
)

type fakeTransport struct {
	mu       sync.Mutex
	connects int
	conns    []*fakeConn
	err      error
	failRefs map[string]bool
}

func (t *fakeTransport) Connect(_ context.Context, _, channelID string) (Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connects++
	if t.err != nil {
		return nil, t.err
	}
	conn := &fakeConn{channelID: channelID, failRefs: t.failRefs}
	t.conns = append(t.conns, conn)
	return conn, nil
}

func (t *fakeTransport) last() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[len(t.conns)-1]
}

var errSubmit = errors.New("submit failed")

type fakeConn struct {
	channelID string
	failRefs  map[string]bool

	mu       sync.Mutex
	handler  func(Event)
	listens  int
	attempts []string
	played   []string
	stops    int
	paused   bool
	closes   int
}

func (c *fakeConn) ChannelID() string {
	return c.channelID
}

func (c *fakeConn) Play(_ context.Context, track Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, track.Title)
	if c.failRefs[track.SourceRef] {
		return errSubmit
	}
	c.played = append(c.played, track.Title)
	return nil
}

func (c *fakeConn) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return nil
}

func (c *fakeConn) SetPaused(_ context.Context, paused bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = paused
	return nil
}

func (c *fakeConn) Listen(handler func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
	c.listens++
}

func (c *fakeConn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

// emit plays the role of the transport's event goroutine.
func (c *fakeConn) emit(ev Event) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	handler(ev)
}

func (c *fakeConn) playedTitles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.played...)
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(_, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type fakePublisher struct {
	mu      sync.Mutex
	started []string
}

func (p *fakePublisher) PublishTrackStarted(_ context.Context, guildID string, track Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, guildID+"/"+track.Title)
	return nil
}

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) schedule.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) latest() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

func track(title string) Track {
	return Track{Title: title, SourceRef: "ref:" + title, Duration: 3 * time.Minute}
}
