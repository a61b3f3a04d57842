package license

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/keygate/storage"
)

func TestReapExpired(t *testing.T) {
	engine, repo, clock := newTestEngine(t)
	now := clock.Now().UnixMilli()

	require.NoError(t, repo.PutSession("tok-a", &storage.Session{
		Credential: "demo", ExpiresAt: now - 1,
	}))
	require.NoError(t, repo.PutSession("tok-b", &storage.Session{
		Credential: "demo", ExpiresAt: now + 1_000_000_000,
	}))

	removed, err := engine.ReapExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.GetSession("tok-a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.GetSession("tok-b")
	assert.NoError(t, err, "unexpired session must be retained")

	// Idempotent: a second sweep removes nothing.
	removed, err = engine.ReapExpired()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestReaperSweepsOnInterval(t *testing.T) {
	engine, repo, clock := newTestEngine(t)
	now := clock.Now().UnixMilli()
	require.NoError(t, repo.PutSession("tok-old", &storage.Session{
		Credential: "demo", ExpiresAt: now - 1,
	}))

	notified := make(chan int, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reaper := NewReaper(engine, 5*time.Millisecond, logger,
		WithReapNotify(func(n int) { notified <- n }))
	reaper.Start()
	defer reaper.Stop()

	select {
	case n := <-notified:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper never swept")
	}

	_, err := repo.GetSession("tok-old")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReaperStopIsIdempotent(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reaper := NewReaper(engine, time.Minute, logger)
	reaper.Start()
	reaper.Stop()
	reaper.Stop()
}
