package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleMinimumInterval(t *testing.T) {
	clock := time.UnixMilli(0)
	throttle := newRequestThrottle(time.Second, func() time.Time { return clock })

	require.True(t, throttle.allow("10.0.0.1"), "first request always passes")
	assert.False(t, throttle.allow("10.0.0.1"), "second request inside the interval is rejected")

	clock = clock.Add(999 * time.Millisecond)
	assert.False(t, throttle.allow("10.0.0.1"), "still inside the interval")

	clock = clock.Add(time.Millisecond)
	assert.True(t, throttle.allow("10.0.0.1"), "interval elapsed")
}

func TestThrottleRejectionDoesNotExtendWindow(t *testing.T) {
	clock := time.UnixMilli(0)
	throttle := newRequestThrottle(time.Second, func() time.Time { return clock })

	require.True(t, throttle.allow("10.0.0.1"))

	// Hammering while rejected must not push the window out: the interval
	// is measured from the last accepted request.
	for i := 0; i < 5; i++ {
		clock = clock.Add(100 * time.Millisecond)
		assert.False(t, throttle.allow("10.0.0.1"))
	}

	clock = clock.Add(500 * time.Millisecond)
	assert.True(t, throttle.allow("10.0.0.1"))
}

func TestThrottleIsolatesAddresses(t *testing.T) {
	clock := time.UnixMilli(0)
	throttle := newRequestThrottle(time.Second, func() time.Time { return clock })

	require.True(t, throttle.allow("10.0.0.1"))
	assert.True(t, throttle.allow("10.0.0.2"), "one address's throttle must not affect another")
	assert.False(t, throttle.allow("10.0.0.1"))
}

func TestThrottleSweepEvictsStaleEntries(t *testing.T) {
	clock := time.UnixMilli(0)
	throttle := newRequestThrottle(time.Second, func() time.Time { return clock })

	require.True(t, throttle.allow("10.0.0.1"))
	require.True(t, throttle.allow("10.0.0.2"))

	clock = clock.Add(staleAfter + time.Minute)
	require.True(t, throttle.allow("10.0.0.2"))

	throttle.sweep()

	throttle.mu.Lock()
	defer throttle.mu.Unlock()
	assert.NotContains(t, throttle.lastAccepted, "10.0.0.1", "stale entry evicted")
	assert.Contains(t, throttle.lastAccepted, "10.0.0.2", "fresh entry retained")
}
