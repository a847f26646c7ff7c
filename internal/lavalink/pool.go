package lavalink

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/glizzus/jukebox/internal/schedule"
	"github.com/glizzus/jukebox/internal/search"
	"github.com/glizzus/jukebox/internal/util"
)

const DefaultReconnectCron = "*/5 * * * * * *"

// NodeStatus is a point-in-time view of one node for status displays.
type NodeStatus struct {
	Name    string
	Address string
	State   NodeState
	Stats   Stats
}

// Pool owns the configured nodes and routes their player events to the
// guild that subscribed for them.
type Pool struct {
	nodes   []*Node
	enabled bool
	logger  *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]func(NodeEvent)
}

// NewPool creates nodes for every config. A pool with no nodes, or one built
// with enabled false, never connects and reports searches as disabled.
func NewPool(nodes []NodeConfig, enabled bool, userID, clientName string) *Pool {
	p := &Pool{
		enabled:     enabled && len(nodes) > 0,
		logger:      slog.Default().With("component", "lavalink"),
		subscribers: make(map[string]func(NodeEvent)),
	}
	for _, cfg := range nodes {
		p.nodes = append(p.nodes, NewNode(cfg, userID, clientName, p.dispatch))
	}
	return p
}

func (p *Pool) Enabled() bool {
	return p.enabled
}

// GetNode prefers a connected node and falls back to the first configured
// one. It returns nil when no node is configured.
func (p *Pool) GetNode() *Node {
	if n, ok := util.FindFirst(p.nodes, connected); ok {
		return n
	}
	if len(p.nodes) == 0 {
		return nil
	}
	return p.nodes[0]
}

func (p *Pool) IsConnected() bool {
	_, ok := util.FindFirst(p.nodes, connected)
	return ok
}

func connected(n *Node) bool {
	return n.State() == StateConnected
}

func (p *Pool) Nodes() []NodeStatus {
	out := make([]NodeStatus, 0, len(p.nodes))
	for _, n := range p.nodes {
		out = append(out, NodeStatus{
			Name:    n.Name(),
			Address: n.Config().Address(),
			State:   n.State(),
			Stats:   n.Stats(),
		})
	}
	return out
}

// SearchAvailable gates the search waterfall on the pool being usable.
func (p *Pool) SearchAvailable() (bool, search.LoadType, string) {
	if !p.enabled {
		return false, search.LoadDisabled, "Lavalink disabled"
	}
	if p.GetNode() == nil {
		return false, search.LoadNoNode, "No connected Lavalink node"
	}
	return true, search.LoadSearch, ""
}

var _ search.Gate = (*Pool)(nil)

// Subscribe routes events for guildID to fn until the returned function is called.
func (p *Pool) Subscribe(guildID string, fn func(NodeEvent)) func() {
	p.mu.Lock()
	p.subscribers[guildID] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, guildID)
	}
}

func (p *Pool) dispatch(ev NodeEvent) {
	if ev.Type == eventNodeLost {
		p.broadcast(ev)
		return
	}
	p.mu.RLock()
	fn, ok := p.subscribers[ev.GuildID]
	p.mu.RUnlock()
	if !ok {
		p.logger.Debug("Dropping event for unsubscribed guild", "guildID", ev.GuildID, "type", ev.Type)
		return
	}
	fn(ev)
}

// Run connects every node and re-dials idle nodes on the cron schedule until
// ctx is cancelled, then closes every node.
func (p *Pool) Run(ctx context.Context, reconnectCron string) error {
	if !p.enabled {
		p.logger.Warn("Lavalink disabled or no nodes configured")
		<-ctx.Done()
		return nil
	}
	if reconnectCron == "" {
		reconnectCron = DefaultReconnectCron
	}
	defer func() {
		for _, n := range p.nodes {
			n.Close()
		}
	}()

	p.connectIdle(ctx)
	err := schedule.Cron(ctx, reconnectCron, p.connectIdle)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (p *Pool) connectIdle(ctx context.Context) {
	var wg sync.WaitGroup
	for _, n := range p.nodes {
		if n.State() != StateIdle {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := n.Connect(dialCtx); err != nil {
				p.logger.Warn("Failed to connect to lavalink node", "node", n.Name(), "err", err)
			}
		}()
	}
	wg.Wait()
}

// broadcast hands ev to every subscriber. Connections on other nodes ignore it.
func (p *Pool) broadcast(ev NodeEvent) {
	p.mu.RLock()
	subscribers := maps.Clone(p.subscribers)
	p.mu.RUnlock()

	p.logger.Warn("Lavalink node lost its session", "node", ev.Node, "subscribers", len(subscribers))
	for guildID, fn := range subscribers {
		ev.GuildID = guildID
		fn(ev)
	}
}
