package player

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Registry owns one GuildQueue per guild. Queues are created on first use
// and live until the process exits.
type Registry struct {
	transport Transport
	opts      options

	mu     sync.RWMutex
	queues map[string]*GuildQueue
}

func NewRegistry(transport Transport, opts ...Option) *Registry {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		transport: transport,
		opts:      o,
		queues:    make(map[string]*GuildQueue),
	}
}

// Get returns the queue for guildID, creating it if needed. Concurrent
// callers for the same guild always receive the same instance.
func (r *Registry) Get(guildID string) *GuildQueue {
	r.mu.RLock()
	q, ok := r.queues[guildID]
	r.mu.RUnlock()
	if ok {
		return q
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[guildID]; ok {
		return q
	}
	q = newGuildQueue(guildID, r.transport, r.opts)
	r.queues[guildID] = q
	return q
}

// Lookup returns the queue for guildID without creating one.
func (r *Registry) Lookup(guildID string) (*GuildQueue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queues[guildID]
	return q, ok
}

// Guilds returns the ids of every guild with a queue, sorted.
func (r *Registry) Guilds() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.queues))
	for id := range r.queues {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Shutdown stops every queue and leaves every voice channel.
func (r *Registry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, id := range r.Guilds() {
		q, _ := r.Lookup(id)
		if err := q.Stop(ctx); err != nil && !errors.Is(err, ErrNotConnected) {
			errs = append(errs, fmt.Errorf("failed to stop queue for guild %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
