// Package ratelimit implements the per-identity admission gate: a
// sliding-log throttle that tracks individual request timestamps per
// client identity and counts how many fall within a trailing window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-log rate limiter keyed by client identity.
// Each identity has its own entry with its own lock, so concurrent
// requests from the same identity serialize against each other while
// distinct identities only contend on the map itself.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type entry struct {
	mu       sync.Mutex
	stamps   []time.Time
	lastSeen time.Time
}

// New creates a limiter admitting at most limit requests per identity
// within the trailing window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Allow prunes the identity's recorded timestamps to the trailing window
// and admits the request if fewer than limit remain. Rejected attempts
// are not recorded. A timestamp exactly window old is expired.
func (l *Limiter) Allow(identity string) bool {
	now := l.now()
	e := l.entry(identity)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastSeen = now
	e.stamps = prune(e.stamps, now.Add(-l.window))

	if len(e.stamps) >= l.limit {
		return false
	}
	e.stamps = append(e.stamps, now)
	return true
}

// entry returns the identity's entry, creating it lazily.
func (l *Limiter) entry(identity string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identity]
	if !ok {
		e = &entry{}
		l.entries[identity] = e
	}
	return e
}

// prune drops timestamps at or before the cutoff. Stamps are appended in
// order, so the survivors are a suffix.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}

// StartSweeper launches a background loop evicting identities that have
// been idle for several windows, bounding the map's growth. Call Stop to
// shut it down.
func (l *Limiter) StartSweeper(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

// sweep removes entries idle for longer than five windows.
func (l *Limiter) sweep() {
	cutoff := l.now().Add(-5 * l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for identity, e := range l.entries {
		e.mu.Lock()
		idle := e.lastSeen.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(l.entries, identity)
		}
	}
}

// Stop shuts down the sweeper, if running.
func (l *Limiter) Stop() {
	if l.cancel != nil {
		l.cancel()
		l.wg.Wait()
	}
}

// Len reports the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
