// Package ratelimit implements an in-memory sliding-window request
// limiter keyed by caller identifier.
package ratelimit

import (
	"sync"
	"time"
)

// bucket holds one identifier's request timestamps inside the window.
// Each bucket has its own lock so distinct identifiers never contend.
type bucket struct {
	mu       sync.Mutex
	requests []time.Time
}

// prune drops entries at or before cutoff. Callers hold b.mu.
func (b *bucket) prune(cutoff time.Time) {
	kept := b.requests[:0]
	for _, t := range b.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.requests = kept
}

// Limiter admits a request only if fewer than limit prior requests from
// the same identifier fall within the trailing window. Construct one per
// policy and pass it explicitly; there is no package-level instance.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	now func() time.Time
}

// New creates a limiter admitting limit requests per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Limit returns the configured request cap.
func (l *Limiter) Limit() int { return l.limit }

func (l *Limiter) bucket(identifier string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[identifier]
	if !ok {
		b = &bucket{}
		l.buckets[identifier] = b
	}
	return b
}

// Allow reports whether a request from identifier may proceed, and how
// much quota remains after it. A rejected request is not recorded, so
// hammering a full bucket does not extend the lockout.
func (l *Limiter) Allow(identifier string) (bool, int) {
	now := l.now()
	b := l.bucket(identifier)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.prune(now.Add(-l.window))
	count := len(b.requests)
	if count >= l.limit {
		return false, 0
	}
	b.requests = append(b.requests, now)
	return true, l.limit - count - 1
}

// RetryAfter returns whole seconds until the identifier's oldest retained
// request leaves the window, at least 1 while any remain, 0 otherwise.
func (l *Limiter) RetryAfter(identifier string) int {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[identifier]
	l.mu.Unlock()
	if !ok {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.prune(now.Add(-l.window))
	if len(b.requests) == 0 {
		return 0
	}
	oldest := b.requests[0]
	for _, t := range b.requests[1:] {
		if t.Before(oldest) {
			oldest = t
		}
	}
	wait := l.window - now.Sub(oldest)
	seconds := int(wait / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}
