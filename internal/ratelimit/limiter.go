// Package ratelimit provides per-capability token buckets sized to
// the remote services' published limits. The buckets are the only
// state shared across concurrent workflow runs.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Service names the capabilities with dedicated buckets.
const (
	ServiceGenerator = "generator"
	ServiceTracker   = "tracker"
	ServiceChat      = "chat"
)

// Bucket sizes one token bucket.
type Bucket struct {
	// PerSecond is the refill rate in tokens per second.
	PerSecond float64
	// Burst is the bucket capacity.
	Burst int
}

// Limiter holds one token bucket per external capability. A call
// acquires a token before dispatch; if none is available it suspends
// until refill, never silently dropping.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
}

// New creates a Limiter with the given per-service buckets.
func New(buckets map[string]Bucket) *Limiter {
	l := &Limiter{buckets: make(map[string]*rate.Limiter, len(buckets))}
	for name, b := range buckets {
		l.buckets[name] = rate.NewLimiter(rate.Limit(b.PerSecond), b.Burst)
	}
	return l
}

// Wait blocks until a token for the named service is available or the
// context is done. Unknown services pass through without limiting.
func (l *Limiter) Wait(ctx context.Context, service string) error {
	l.mu.RLock()
	lim, ok := l.buckets[service]
	l.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for %s token: %w", service, err)
	}
	return nil
}

// Allow reports whether a token is immediately available without
// consuming the caller's time. Used by tests and health checks.
func (l *Limiter) Allow(service string) bool {
	l.mu.RLock()
	lim, ok := l.buckets[service]
	l.mu.RUnlock()
	if !ok {
		return true
	}
	return lim.Allow()
}

// SetBucket replaces the bucket for a service at runtime.
func (l *Limiter) SetBucket(service string, b Bucket) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[service] = rate.NewLimiter(rate.Limit(b.PerSecond), b.Burst)
}
