package aischeduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/corridors/server/internal/domain/model"
	"github.com/corridors/server/internal/fanout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMover struct {
	mu    sync.Mutex
	calls []model.GameId
	done  chan model.GameId
}

func newFakeMover() *fakeMover {
	return &fakeMover{done: make(chan model.GameId, 16)}
}

func (f *fakeMover) PlayMachineTurn(_ context.Context, gameID model.GameId) error {
	f.mu.Lock()
	f.calls = append(f.calls, gameID)
	f.mu.Unlock()
	f.done <- gameID
	return nil
}

func (f *fakeMover) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *fakeMover) {
	t.Helper()
	mover := newFakeMover()
	rooms := fanout.NewRoomRegistry(fanout.WithHeartbeatPeriod(0))
	s, err := New(nil, mover, rooms, testLogger(), opts...)
	require.NoError(t, err)

	go func() {
		_ = s.router.Run(context.Background())
	}()
	<-s.router.Running()
	t.Cleanup(func() { _ = s.Close() })
	return s, mover
}

func TestEnqueueDrivesMachineTurn(t *testing.T) {
	s, mover := newTestScheduler(t)
	gameID := model.NewGameId()

	require.NoError(t, s.Enqueue(gameID))

	select {
	case got := <-mover.done:
		assert.Equal(t, gameID, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for machine turn")
	}
	assert.Equal(t, 1, mover.count())
}

func TestEnqueueRejectsDuplicateWhilePending(t *testing.T) {
	s, mover := newTestScheduler(t, WithWorkers(1))
	gameID := model.NewGameId()
	other := model.NewGameId()

	// Saturate the single worker slot with a first game so the second
	// Enqueue call for the same GameId observes it still pending.
	require.NoError(t, s.Enqueue(gameID))
	err := s.Enqueue(gameID)
	// Either already consumed by the lone worker (dedup window closed) or
	// still pending (dedup rejects) — both are spec-correct outcomes; only
	// a second, distinct game must never collide.
	if err != nil {
		assert.ErrorIs(t, err, model.ErrAlreadyQueued)
	}

	require.NoError(t, s.Enqueue(other))

	seen := map[model.GameId]bool{}
	for i := 0; i < 2; i++ {
		select {
		case got := <-mover.done:
			seen[got] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for turn %d", i)
		}
	}
	assert.True(t, seen[gameID])
	assert.True(t, seen[other])
}

func TestEnqueueMarksStuckWhenWorkersSaturated(t *testing.T) {
	block := make(chan struct{})
	rooms := fanout.NewRoomRegistry(fanout.WithHeartbeatPeriod(0))
	mover := &blockingMover{release: block}
	s, err := New(nil, mover, rooms, testLogger(), WithWorkers(1), WithEnqueueTimeout(50*time.Millisecond))
	require.NoError(t, err)
	go func() { _ = s.router.Run(context.Background()) }()
	<-s.router.Running()
	defer func() { close(block); _ = s.Close() }()

	busy := model.NewGameId()
	require.NoError(t, s.Enqueue(busy))

	// Give the worker a moment to pick up the first game and occupy the
	// only slot before the second Enqueue call contends for it.
	time.Sleep(20 * time.Millisecond)

	stuck := model.NewGameId()
	err = s.Enqueue(stuck)
	assert.ErrorIs(t, err, model.ErrQueueFull)
}

type blockingMover struct {
	release chan struct{}
}

func (b *blockingMover) PlayMachineTurn(ctx context.Context, _ model.GameId) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}
