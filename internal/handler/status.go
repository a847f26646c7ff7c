package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/lavalink"
	"github.com/glizzus/jukebox/internal/presenters"
	"github.com/glizzus/jukebox/internal/repository"
	"github.com/glizzus/jukebox/internal/schedule"
)

// NodeLister reports the state of the Lavalink nodes.
type NodeLister interface {
	Enabled() bool
	Nodes() []lavalink.NodeStatus
}

var _ NodeLister = (*lavalink.Pool)(nil)

const DefaultHistoryLimit = 10

// Status implements the informational commands. Nodes and Plays may be nil.
// ReconnectCron is the node reconnect schedule shown while a node is down.
type Status struct {
	Nodes         NodeLister
	ReconnectCron string
	Plays         repository.HistoryReader
	HistoryLimit  int
}

func (st *Status) nextReconnect() time.Time {
	if st.ReconnectCron == "" {
		return time.Time{}
	}
	next, err := schedule.NextRunTimes(st.ReconnectCron, 1)
	if err != nil || len(next) == 0 {
		slog.Warn("Failed to compute next reconnect attempt", "cron", st.ReconnectCron, "err", err)
		return time.Time{}
	}
	return next[0]
}

func (st *Status) NodeStatus(_ context.Context, s DiscordSession, m *discordgo.MessageCreate, _ []string) error {
	if st.Nodes == nil {
		return reply(s, m, presenters.BuildNodeStatusMessage(false, nil, time.Time{}))
	}
	return reply(s, m, presenters.BuildNodeStatusMessage(st.Nodes.Enabled(), st.Nodes.Nodes(), st.nextReconnect()))
}

func (st *Status) History(ctx context.Context, s DiscordSession, m *discordgo.MessageCreate, _ []string) error {
	if st.Plays == nil {
		return userErrorf("Play history is not enabled.")
	}
	limit := st.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	plays, err := st.Plays.Recent(ctx, m.GuildID, limit)
	if err != nil {
		return fmt.Errorf("failed to load play history: %w", err)
	}
	return reply(s, m, presenters.BuildHistoryMessage(plays))
}
