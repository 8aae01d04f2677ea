// Package dedup suppresses re-processing of inbound events and re-delivery to
// destinations that were already served for the same event.
//
// Every mark expires a fixed TTL after it was first inserted. Expiry is driven
// by a timer per entry so the sets shrink on their own even when no new
// traffic arrives.
package dedup

import (
	"sync"
	"time"

	"github.com/fpt/polyglot/pkg/relay/domain"
)

// DefaultTTL is the dedup window used when none is configured.
const DefaultTTL = 60 * time.Second

type deliveryKey struct {
	eventID   string
	channelID string
}

// Guard holds the "events seen" and "deliveries made" sets.
type Guard struct {
	ttl   time.Duration
	clock Clock

	mu        sync.Mutex
	seen      map[string]Timer
	delivered map[deliveryKey]Timer
	closed    bool
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock replaces the timer source.
func WithClock(c Clock) Option {
	return func(g *Guard) { g.clock = c }
}

// New creates a guard with the given TTL (DefaultTTL when ttl <= 0).
func New(ttl time.Duration, opts ...Option) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	g := &Guard{
		ttl:       ttl,
		clock:     RealClock(),
		seen:      make(map[string]Timer),
		delivered: make(map[deliveryKey]Timer),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldProcess returns true exactly once per event id within the TTL window.
func (g *Guard) ShouldProcess(eventID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}
	if _, ok := g.seen[eventID]; ok {
		return false
	}
	g.seen[eventID] = g.clock.AfterFunc(g.ttl, func() {
		g.mu.Lock()
		delete(g.seen, eventID)
		g.mu.Unlock()
	})
	return true
}

// ShouldDeliver returns true exactly once per (event, destination) pair within the TTL window.
func (g *Guard) ShouldDeliver(eventID, channelID string) bool {
	key := deliveryKey{eventID: eventID, channelID: channelID}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}
	if _, ok := g.delivered[key]; ok {
		return false
	}
	g.delivered[key] = g.clock.AfterFunc(g.ttl, func() {
		g.mu.Lock()
		delete(g.delivered, key)
		g.mu.Unlock()
	})
	return true
}

// Stats returns the current sizes of both sets.
func (g *Guard) Stats() (events, deliveries int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen), len(g.delivered)
}

// TTL returns the configured window.
func (g *Guard) TTL() time.Duration { return g.ttl }

// Close stops all pending expiry timers. A closed guard rejects everything.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true
	for _, t := range g.seen {
		t.Stop()
	}
	for _, t := range g.delivered {
		t.Stop()
	}
	g.seen = make(map[string]Timer)
	g.delivered = make(map[deliveryKey]Timer)
}

var _ domain.Deduper = (*Guard)(nil)
