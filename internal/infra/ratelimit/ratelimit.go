// Package ratelimit implements the per-domain fetch rate limiter (spec
// §4.5): a domain -> last-fetch-instant map consulted before every
// rate-limited fetch. Unlike internal/infra/notifier's token-bucket
// limiter, this one is a simple "sleep the remainder" policy with no
// persistence across daemon restarts, matching the spec's description
// exactly.
package ratelimit

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// Clock abstracts time.Now so tests can drive the limiter with a fake
// clock instead of sleeping in real time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by the real wall clock.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }

// Limiter enforces a configured requests-per-second ceiling per domain.
// Domains with no configured rate bypass the limiter entirely. It is safe
// for concurrent use, though the engine's single cooperative loop never
// calls it concurrently in practice.
type Limiter struct {
	mu         sync.Mutex
	ratePerSec map[string]float64
	lastFetch  map[string]time.Time
	clock      Clock
}

// New builds a Limiter from a domain -> requests-per-second map.
func New(ratePerSec map[string]float64) *Limiter {
	return NewWithClock(ratePerSec, SystemClock{})
}

// NewWithClock builds a Limiter using clock instead of the system clock,
// for deterministic tests.
func NewWithClock(ratePerSec map[string]float64, clock Clock) *Limiter {
	return &Limiter{
		ratePerSec: ratePerSec,
		lastFetch:  make(map[string]time.Time),
		clock:      clock,
	}
}

// Domain extracts the host component from a locator URL, for use as the
// limiter key. It returns the locator unchanged if it does not parse as a
// URL with a host (e.g. a shell command, which is never rate-limited).
func Domain(locator string) string {
	u, err := url.Parse(locator)
	if err != nil || u.Host == "" {
		return locator
	}
	return u.Hostname()
}

// Wait blocks until domain's configured rate permits another fetch, then
// records the new fetch instant. If domain has no configured rate, it
// returns immediately. The sleep is interruptible by ctx cancellation.
func (l *Limiter) Wait(ctx context.Context, domain string) error {
	l.mu.Lock()
	rate, configured := l.ratePerSec[domain]
	if !configured || rate <= 0 {
		l.lastFetch[domain] = l.clock.Now()
		l.mu.Unlock()
		return nil
	}

	minInterval := time.Duration(float64(time.Second) / rate)
	last, seen := l.lastFetch[domain]
	now := l.clock.Now()
	var sleepFor time.Duration
	if seen {
		elapsed := now.Sub(last)
		if elapsed < minInterval {
			sleepFor = minInterval - elapsed
		}
	}
	l.mu.Unlock()

	if sleepFor > 0 {
		timer := time.NewTimer(sleepFor)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.mu.Lock()
	l.lastFetch[domain] = l.clock.Now()
	l.mu.Unlock()
	return nil
}
