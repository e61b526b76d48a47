package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually-advanced Clock for deterministic limiter tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter_Wait_BypassesUnconfiguredDomain(t *testing.T) {
	l := New(map[string]float64{})
	start := time.Now()
	err := l.Wait(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_Wait_FirstCallNeverSleeps(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	l := NewWithClock(map[string]float64{"example.com": 1}, clock)

	start := time.Now()
	err := l.Wait(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_Wait_SleepsRemainderWhenTooSoon(t *testing.T) {
	l := New(map[string]float64{"example.com": 20}) // 50ms min interval

	require.NoError(t, l.Wait(context.Background(), "example.com"))
	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "example.com"))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestLimiter_Wait_DoesNotSleepWhenIntervalAlreadyElapsed(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	l := NewWithClock(map[string]float64{"example.com": 1}, clock)

	require.NoError(t, l.Wait(context.Background(), "example.com"))
	clock.Advance(2 * time.Second)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "example.com"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_Wait_RespectsContextCancellation(t *testing.T) {
	l := New(map[string]float64{"example.com": 1})
	require.NoError(t, l.Wait(context.Background(), "example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, "example.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_Wait_TracksDomainsIndependently(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	l := NewWithClock(map[string]float64{"a.com": 100, "b.com": 100}, clock)

	require.NoError(t, l.Wait(context.Background(), "a.com"))
	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "b.com"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestDomain_ExtractsHostFromURL(t *testing.T) {
	assert.Equal(t, "example.com", Domain("https://example.com/path?x=1"))
}

func TestDomain_ReturnsLocatorForNonURL(t *testing.T) {
	assert.Equal(t, "cat file.txt", Domain("cat file.txt"))
}
