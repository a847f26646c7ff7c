package handler

import (
	"sync"
	"time"

	"github.com/glizzus/jukebox/internal/config"
	"golang.org/x/time/rate"
)

// pruneThreshold is the number of tracked users above which idle limiters
// are dropped.
const pruneThreshold = 1024

// UserLimiter hands out one token bucket per user.
type UserLimiter struct {
	limit  rate.Limit
	burst  int
	exempt map[string]bool
	now    func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewUserLimiter allows burst commands at once and one more every cfg.Every.
// Users listed in exempt are never limited.
func NewUserLimiter(cfg *config.RateLimitConfig, exempt ...string) *UserLimiter {
	l := &UserLimiter{
		limit:    rate.Every(cfg.Every),
		burst:    max(cfg.Burst, 1),
		exempt:   make(map[string]bool),
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
	if cfg.Every <= 0 {
		l.limit = rate.Inf
	}
	for _, id := range exempt {
		if id != "" {
			l.exempt[id] = true
		}
	}
	return l
}

func (l *UserLimiter) Allow(userID string) bool {
	if l.exempt[userID] {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[userID]
	if !ok {
		if len(l.limiters) >= pruneThreshold {
			l.pruneLocked(now)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	return lim.AllowN(now, 1)
}

// pruneLocked forgets users whose bucket has refilled, since a fresh
// limiter behaves identically.
func (l *UserLimiter) pruneLocked(now time.Time) {
	for id, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, id)
		}
	}
}
