package handler

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/search"
	"github.com/glizzus/jukebox/internal/tts"
	"github.com/glizzus/jukebox/internal/voice"
)

type sent struct {
	ChannelID string
	Content   string
	Files     []string
	Reply     bool
}

type fakeSession struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{Content: content})
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := sent{ChannelID: channelID, Content: data.Content, Reply: data.Reference != nil}
	for _, file := range data.Files {
		if _, err := io.ReadAll(file.Reader); err != nil {
			return nil, err
		}
		out.Files = append(out.Files, file.Name)
	}
	f.sent = append(f.sent, out)
	return &discordgo.Message{ChannelID: channelID, Content: data.Content}, nil
}

func (f *fakeSession) contents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.Content)
	}
	return out
}

type fakeConnection struct {
	channelID string
	failRefs  map[string]bool

	mu     sync.Mutex
	played []player.Track
	stops  int
	paused bool
	closed bool
}

func (c *fakeConnection) ChannelID() string { return c.channelID }

func (c *fakeConnection) Play(_ context.Context, track player.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failRefs[track.SourceRef] {
		return errBoom
	}
	c.played = append(c.played, track)
	return nil
}

func (c *fakeConnection) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return nil
}

func (c *fakeConnection) SetPaused(_ context.Context, paused bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = paused
	return nil
}

func (c *fakeConnection) Listen(func(player.Event)) {}

func (c *fakeConnection) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeTransport struct {
	mu       sync.Mutex
	conns    []*fakeConnection
	failRefs map[string]bool
}

func (t *fakeTransport) Connect(_ context.Context, _, channelID string) (player.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := &fakeConnection{channelID: channelID, failRefs: t.failRefs}
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) last() *fakeConnection {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

type fakeSearcher struct {
	results map[string]search.Result
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) search.Result {
	f.queries = append(f.queries, query)
	if res, ok := f.results[query]; ok {
		return res
	}
	return search.Result{LoadType: search.LoadNoMatches, Message: search.NoMatchesMessage}
}

type fakeSpeaker struct {
	err  error
	text string
	lang string
}

func (f *fakeSpeaker) Speak(_ context.Context, text, lang, requestedBy string) (*tts.Clip, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.text, f.lang = text, lang
	return &tts.Clip{
		Track: player.Track{
			Title:       "TTS (" + tts.Languages[lang] + "): " + text,
			SourceRef:   "https://blobs.example.com/tts/clip.mp3",
			URL:         "https://blobs.example.com/tts/clip.mp3",
			RequestedBy: requestedBy,
		},
		Audio:    []byte("mp3"),
		Language: lang,
	}, nil
}

// voiceChannels maps user IDs to the voice channel they are in.
func voiceChannels(channels map[string]string) VoiceLocator {
	return func(_, userID string) (string, error) {
		if ch, ok := channels[userID]; ok {
			return ch, nil
		}
		return "", voice.ErrNotInVoice
	}
}

func failingLocator(err error) VoiceLocator {
	return func(string, string) (string, error) {
		return "", err
	}
}

var errBoom = errors.New("boom")

func message(userID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "msg-1",
		ChannelID: "text-1",
		GuildID:   "guild-1",
		Content:   content,
		Author:    &discordgo.User{ID: userID},
	}}
}
