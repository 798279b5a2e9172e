// Package ratelimit suppresses repeated view increments from the same client.
//
// The default ViewLimiter keeps its state in process memory. Every instance of
// the server has its own window, so a client spread over several instances by a
// load balancer can be counted once per instance. That is acceptable for
// dampening view inflation; anything needing a global guarantee should provide
// a RateGate backed by shared storage.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultWindow is how long a (song, client) pair stays suppressed.
	DefaultWindow = time.Hour

	// DefaultSweepThreshold is the map size above which expired entries are dropped.
	DefaultSweepThreshold = 5000
)

// RateGate decides whether a view from clientID on slug should be counted.
type RateGate interface {
	// CheckAndRecord returns true and records the attempt when the pair is
	// outside its window. It returns false, leaving state untouched, otherwise.
	CheckAndRecord(slug, clientID string) bool
}

// ViewLimiter is an in-memory RateGate. It is safe for concurrent use.
type ViewLimiter struct {
	mu             sync.Mutex
	seen           map[string]time.Time
	window         time.Duration
	sweepThreshold int
	now            func() time.Time
}

// Option configures a ViewLimiter.
type Option func(*ViewLimiter)

// WithWindow overrides DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(l *ViewLimiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithSweepThreshold overrides DefaultSweepThreshold.
func WithSweepThreshold(n int) Option {
	return func(l *ViewLimiter) {
		if n > 0 {
			l.sweepThreshold = n
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *ViewLimiter) {
		l.now = now
	}
}

// NewViewLimiter returns a ViewLimiter with a one hour window.
func NewViewLimiter(opts ...Option) *ViewLimiter {
	l := &ViewLimiter{
		seen:           make(map[string]time.Time),
		window:         DefaultWindow,
		sweepThreshold: DefaultSweepThreshold,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAndRecord implements RateGate.
func (l *ViewLimiter) CheckAndRecord(slug, clientID string) bool {
	key := slug + ":" + clientID
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.seen[key]; ok && now.Sub(last) < l.window {
		return false
	}
	l.seen[key] = now

	if len(l.seen) > l.sweepThreshold {
		l.sweep(now)
	}
	return true
}

// sweep drops every entry whose window has elapsed. Caller holds mu.
func (l *ViewLimiter) sweep(now time.Time) {
	for key, last := range l.seen {
		if now.Sub(last) >= l.window {
			delete(l.seen, key)
		}
	}
}

// Len returns the number of tracked pairs.
func (l *ViewLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
