package license

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultReapInterval is how often the reaper sweeps expired sessions.
const DefaultReapInterval = time.Hour

// ReapExpired deletes every session whose expiry has passed and returns the
// number removed. It is idempotent and safe to run concurrently with request
// handling; it takes the same engine lock as every other operation.
func (e *Engine) ReapExpired() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := e.repo.Sessions()
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}

	now := e.nowMillis()
	removed := 0
	for token, sess := range sessions {
		if sess.ExpiresAt >= now {
			continue
		}
		if err := e.repo.DeleteSession(token); err != nil {
			return removed, fmt.Errorf("deleting expired session: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Reaper runs ReapExpired on a fixed interval, independent of request
// traffic.
type Reaper struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
	onReap   func(removed int)
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// ReaperOption configures a Reaper.
type ReaperOption func(*Reaper)

// WithReapNotify registers a callback invoked after each sweep that removed
// at least one session.
func WithReapNotify(fn func(removed int)) ReaperOption {
	return func(r *Reaper) { r.onReap = fn }
}

// NewReaper creates a Reaper sweeping at the given interval (DefaultReapInterval
// when zero). Call Start to begin sweeping.
func NewReaper(engine *Engine, interval time.Duration, logger *slog.Logger, opts ...ReaperOption) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reaper{
		engine:   engine,
		interval: interval,
		logger:   logger.With("component", "reaper"),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the background sweep loop.
func (r *Reaper) Start() {
	go r.loop()
}

// Stop halts the sweep loop and waits for it to exit.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.done
}

func (r *Reaper) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Reaper) sweep() {
	removed, err := r.engine.ReapExpired()
	if err != nil {
		r.logger.Error("session sweep failed", "error", err, "removed", removed)
		return
	}
	if removed > 0 {
		r.logger.Info("reaped expired sessions", "removed", removed)
		if r.onReap != nil {
			r.onReap(removed)
		}
	}
}
