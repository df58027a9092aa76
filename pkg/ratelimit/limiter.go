package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a keyed token-bucket rate limiter. The explorer uses it to cap
// how fast any single backend endpoint can be hit: a user hammering
// double-click on a node, or a creation with many selected targets, must not
// turn into a request storm before the circuit breaker even notices.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	refill   time.Duration
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// New creates a limiter where each key holds up to capacity tokens and
// regains one token per refill interval
func New(capacity int, refill time.Duration) *Limiter {
	return &Limiter{
		buckets:  make(map[string]*bucket),
		capacity: capacity,
		refill:   refill,
	}
}

// Allow consumes a token for the key, reporting false when the bucket is
// empty
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, lastRefill: time.Now()}
		l.buckets[key] = b
	}

	now := time.Now()
	if refilled := int(now.Sub(b.lastRefill) / l.refill); refilled > 0 {
		b.tokens = min(b.tokens+refilled, l.capacity)
		b.lastRefill = now
	}

	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}

// Reset restores the key's bucket to full capacity
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
