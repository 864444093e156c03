package turnrouter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corridors/server/internal/domain/model"
	"github.com/corridors/server/internal/fanout"
	"github.com/corridors/server/internal/kernel"
	"github.com/corridors/server/internal/kernel/boardkernel"
	"github.com/corridors/server/internal/registry"
	"github.com/corridors/server/internal/searchadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	mu      sync.Mutex
	enqueued []model.GameId
}

func (f *fakeEnqueuer) Enqueue(gameID model.GameId) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, gameID)
	return nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued)
}

func newTestRouter(t *testing.T) (*Router, *fakeEnqueuer) {
	t.Helper()
	factory := searchadapter.NewFactory(boardkernel.New, nil)
	ai := &fakeEnqueuer{}
	r := New(registry.NewSessionRegistry(), factory, fanout.NewRoomRegistry(fanout.WithHeartbeatPeriod(0)), ai, 0)
	return r, ai
}

func humanSlots(p1, p2 model.PlayerId) (model.PlayerSlot, model.PlayerSlot) {
	return model.PlayerSlot{Kind: model.Human, PlayerID: p1, DisplayName: string(p1)},
		model.PlayerSlot{Kind: model.Human, PlayerID: p2, DisplayName: string(p2)}
}

func TestHumanVsHumanResignation(t *testing.T) {
	r, _ := newTestRouter(t)
	s1, s2 := humanSlots("alice", "bob")
	snap, err := r.CreateSession(context.Background(), model.DefaultConfiguration(), s1, s2)
	require.NoError(t, err)

	legal, err := r.LegalMoves(context.Background(), snap.GameID)
	require.NoError(t, err)
	require.NotEmpty(t, legal)

	_, err = r.ApplyMove(context.Background(), snap.GameID, "alice", legal[0])
	require.NoError(t, err)

	snap, err = r.GetSession(snap.GameID)
	require.NoError(t, err)
	legal2, err := r.LegalMoves(context.Background(), snap.GameID)
	require.NoError(t, err)
	require.NotEmpty(t, legal2)

	_, err = r.ApplyMove(context.Background(), snap.GameID, "bob", legal2[0])
	require.NoError(t, err)

	winner, err := r.Resign(snap.GameID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.Slot2, winner)

	final, err := r.GetSession(snap.GameID)
	require.NoError(t, err)
	assert.Equal(t, model.Completed, final.Status)
	assert.Equal(t, model.Slot2, final.Winner)
	assert.Equal(t, model.ReasonResignation, final.TerminationReason)
	assert.Equal(t, 2, final.MoveCount)
}

func TestApplyMoveRejectsWrongPlayer(t *testing.T) {
	r, _ := newTestRouter(t)
	s1, s2 := humanSlots("alice", "bob")
	snap, err := r.CreateSession(context.Background(), model.DefaultConfiguration(), s1, s2)
	require.NoError(t, err)

	legal, err := r.LegalMoves(context.Background(), snap.GameID)
	require.NoError(t, err)

	_, err = r.ApplyMove(context.Background(), snap.GameID, "bob", legal[0])
	assert.ErrorIs(t, err, model.ErrNotYourTurn)
}

func TestApplyMoveRejectsIllegalAction(t *testing.T) {
	r, _ := newTestRouter(t)
	s1, s2 := humanSlots("alice", "bob")
	snap, err := r.CreateSession(context.Background(), model.DefaultConfiguration(), s1, s2)
	require.NoError(t, err)

	_, err = r.ApplyMove(context.Background(), snap.GameID, "alice", "*(99,99)")
	assert.ErrorIs(t, err, model.ErrIllegalMove)
}

func TestResignOnCompletedSessionFailsNotInProgress(t *testing.T) {
	r, _ := newTestRouter(t)
	s1, s2 := humanSlots("alice", "bob")
	snap, err := r.CreateSession(context.Background(), model.DefaultConfiguration(), s1, s2)
	require.NoError(t, err)

	_, err = r.Resign(snap.GameID, "alice")
	require.NoError(t, err)

	_, err = r.Resign(snap.GameID, "bob")
	assert.ErrorIs(t, err, model.ErrNotInProgress)
}

func TestCreateSessionEnqueuesMachineOpener(t *testing.T) {
	r, ai := newTestRouter(t)
	machine := model.PlayerSlot{Kind: model.Machine}
	human := model.PlayerSlot{Kind: model.Human, PlayerID: "bob"}

	_, err := r.CreateSession(context.Background(), model.DefaultConfiguration(), machine, human)
	require.NoError(t, err)
	assert.Equal(t, 1, ai.count())
}

func TestApplyMoveEnqueuesAIWhenNextSlotIsMachine(t *testing.T) {
	r, ai := newTestRouter(t)
	human := model.PlayerSlot{Kind: model.Human, PlayerID: "alice"}
	machine := model.PlayerSlot{Kind: model.Machine}

	snap, err := r.CreateSession(context.Background(), model.DefaultConfiguration(), human, machine)
	require.NoError(t, err)
	assert.Equal(t, 0, ai.count())

	legal, err := r.LegalMoves(context.Background(), snap.GameID)
	require.NoError(t, err)

	_, err = r.ApplyMove(context.Background(), snap.GameID, "alice", legal[0])
	require.NoError(t, err)
	assert.Equal(t, 1, ai.count())
}

type failingAdapter struct{ err error }

func (f failingAdapter) Close() error { return nil }
func (f failingAdapter) LegalActions(context.Context) ([]string, error) { return nil, nil }
func (f failingAdapter) ApplyMove(context.Context, string, bool) error  { return nil }
func (f failingAdapter) IsTerminal(context.Context) (bool, error)       { return false, nil }
func (f failingAdapter) SortedActions(context.Context, bool) ([]kernel.ScoredAction, error) {
	return nil, nil
}
func (f failingAdapter) Evaluation(context.Context) (float64, bool, error) { return 0, false, nil }
func (f failingAdapter) EnsureBudget(context.Context, int, time.Time) (int, error) {
	return 0, f.err
}
func (f failingAdapter) BestAction(context.Context, float64) (string, error) { return "", f.err }
func (f failingAdapter) Render(context.Context, bool) (string, error)       { return "", nil }

func TestPlayMachineTurnCancelsSessionOnNonClosedAdapterFailure(t *testing.T) {
	r, _ := newTestRouter(t)
	human := model.PlayerSlot{Kind: model.Human, PlayerID: "alice"}
	machine := model.PlayerSlot{Kind: model.Machine}

	snap, err := r.CreateSession(context.Background(), model.DefaultConfiguration(), machine, human)
	require.NoError(t, err)

	g, ok := r.sessions.Get(snap.GameID)
	require.True(t, ok)
	g.WithLock(func(s *model.Session) {
		s.Engine = failingAdapter{err: errors.New("kernel panic")}
	})

	err = r.PlayMachineTurn(context.Background(), snap.GameID)
	require.Error(t, err)

	assert.Equal(t, model.Cancelled, g.Snapshot().Status)
	assert.Equal(t, model.ReasonCancelled, g.Snapshot().TerminationReason)
}

func TestPlayMachineTurnSwallowsAdapterClosed(t *testing.T) {
	r, _ := newTestRouter(t)
	human := model.PlayerSlot{Kind: model.Human, PlayerID: "alice"}
	machine := model.PlayerSlot{Kind: model.Machine}

	snap, err := r.CreateSession(context.Background(), model.DefaultConfiguration(), machine, human)
	require.NoError(t, err)

	g, ok := r.sessions.Get(snap.GameID)
	require.True(t, ok)
	g.WithLock(func(s *model.Session) {
		s.Engine = failingAdapter{err: model.ErrAdapterClosed}
	})

	err = r.PlayMachineTurn(context.Background(), snap.GameID)
	require.NoError(t, err)
	assert.Equal(t, model.InProgress, g.Snapshot().Status)
}

func TestDeleteSessionIsIdempotent(t *testing.T) {
	r, _ := newTestRouter(t)
	s1, s2 := humanSlots("alice", "bob")
	snap, err := r.CreateSession(context.Background(), model.DefaultConfiguration(), s1, s2)
	require.NoError(t, err)

	require.NoError(t, r.DeleteSession(snap.GameID))
	err = r.DeleteSession(snap.GameID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestLeaderboardReflectsCompletedGames(t *testing.T) {
	r, _ := newTestRouter(t)
	s1, s2 := humanSlots("alice", "bob")
	snap, err := r.CreateSession(context.Background(), model.DefaultConfiguration(), s1, s2)
	require.NoError(t, err)
	_, err = r.Resign(snap.GameID, "bob")
	require.NoError(t, err)

	stats, ok := r.PlayerStats("alice")
	require.True(t, ok)
	assert.Equal(t, 1, stats.Wins)

	board := r.Leaderboard(10)
	require.NotEmpty(t, board)
	assert.Equal(t, model.PlayerId("alice"), board[0].PlayerID)
}
