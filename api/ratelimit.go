package api

import (
	"sync"
	"time"
)

const (
	// defaultThrottleInterval is the minimum spacing between accepted
	// requests from one client address.
	defaultThrottleInterval = 1000 * time.Millisecond
	// sweepEvery is how often stale throttle entries are evicted.
	sweepEvery = 10 * time.Minute
	// staleAfter is how long after its last accepted request an address's
	// entry may be dropped.
	staleAfter = 1 * time.Hour
)

// requestThrottle enforces a minimum interval per client address, measured
// from the address's last *accepted* request regardless of its outcome.
// Entries are swept periodically so the map cannot grow without bound.
type requestThrottle struct {
	mu           sync.Mutex
	interval     time.Duration
	lastAccepted map[string]time.Time
	now          func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newRequestThrottle(interval time.Duration, now func() time.Time) *requestThrottle {
	if interval <= 0 {
		interval = defaultThrottleInterval
	}
	return &requestThrottle{
		interval:     interval,
		lastAccepted: make(map[string]time.Time),
		now:          now,
		stopCh:       make(chan struct{}),
	}
}

// allow reports whether a request from addr may proceed, recording the
// acceptance time when it may. Rejected requests do not push the window out.
func (t *requestThrottle) allow(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.lastAccepted[addr]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastAccepted[addr] = now
	return true
}

// sweep drops entries whose last accepted request is older than staleAfter.
func (t *requestThrottle) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-staleAfter)
	for addr, last := range t.lastAccepted {
		if last.Before(cutoff) {
			delete(t.lastAccepted, addr)
		}
	}
}

func (t *requestThrottle) startSweeper() {
	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.sweep()
			case <-t.stopCh:
				return
			}
		}
	}()
}

func (t *requestThrottle) stopSweeper() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}
