package handlers

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// replayGuard remembers accepted request signatures until their timestamps
// can no longer pass the skew check.
type replayGuard struct {
	clock     clockwork.Clock
	ttl       time.Duration
	mu        sync.Mutex
	seen      map[string]time.Time
	lastSweep time.Time
}

func newReplayGuard(clock clockwork.Clock, maxSkew time.Duration) *replayGuard {
	return &replayGuard{
		clock:     clock,
		ttl:       2 * maxSkew,
		seen:      make(map[string]time.Time),
		lastSweep: clock.Now(),
	}
}

// claim records key and reports whether it had not been seen before.
func (g *replayGuard) claim(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if now.Sub(g.lastSweep) >= g.ttl {
		for k, expires := range g.seen {
			if !now.Before(expires) {
				delete(g.seen, k)
			}
		}
		g.lastSweep = now
	}

	if expires, ok := g.seen[key]; ok && now.Before(expires) {
		return false
	}
	g.seen[key] = now.Add(g.ttl)
	return true
}

func (g *replayGuard) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
