package matchmaker

import (
	"context"
	"testing"
	"time"

	"github.com/corridors/server/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionCreator struct {
	gameID model.GameId
	err    error
	slots  [][2]model.PlayerSlot
}

func (f *fakeSessionCreator) CreateSession(_ context.Context, _ model.Configuration, slot1, slot2 model.PlayerSlot) (model.Snapshot, error) {
	if f.err != nil {
		return model.Snapshot{}, f.err
	}
	f.slots = append(f.slots, [2]model.PlayerSlot{slot1, slot2})
	return model.Snapshot{GameID: f.gameID, Slots: [2]model.PlayerSlot{slot1, slot2}}, nil
}

func TestJoinWaitsWhenQueueEmpty(t *testing.T) {
	sessions := &fakeSessionCreator{gameID: model.NewGameId()}
	mm := New(sessions)

	gameID, matched, ticket, err := mm.Join(context.Background(), "alice", "Alice", model.DefaultConfiguration())
	require.NoError(t, err)
	assert.False(t, matched)
	require.NotNil(t, ticket)
	assert.Equal(t, 1, ticket.Position)
	assert.Equal(t, model.GameId{}, gameID)
	assert.Equal(t, 1, mm.QueueLength())
}

func TestJoinPairsSecondArrivalWithWaitingFirst(t *testing.T) {
	sessions := &fakeSessionCreator{gameID: model.NewGameId()}
	mm := New(sessions)

	_, _, ticket, err := mm.Join(context.Background(), "alice", "Alice", model.DefaultConfiguration())
	require.NoError(t, err)

	gameID, matched, secondTicket, err := mm.Join(context.Background(), "bob", "Bob", model.DefaultConfiguration())
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Nil(t, secondTicket)
	assert.Equal(t, sessions.gameID, gameID)
	assert.Equal(t, 0, mm.QueueLength())

	select {
	case got := <-ticket.Matched:
		assert.Equal(t, sessions.gameID, got)
	case <-time.After(time.Second):
		t.Fatal("waiting ticket was never notified of the pairing")
	}

	require.Len(t, sessions.slots, 1)
	assert.Equal(t, model.PlayerId("alice"), sessions.slots[0][0].PlayerID)
	assert.Equal(t, model.PlayerId("bob"), sessions.slots[0][1].PlayerID)
}

func TestJoinRejectsDuplicateTicketForSamePlayer(t *testing.T) {
	mm := New(&fakeSessionCreator{gameID: model.NewGameId()})

	_, _, _, err := mm.Join(context.Background(), "alice", "Alice", model.DefaultConfiguration())
	require.NoError(t, err)

	_, _, _, err = mm.Join(context.Background(), "alice", "Alice", model.DefaultConfiguration())
	assert.ErrorIs(t, err, model.ErrAlreadyQueued)
}

func TestLeaveRemovesWaitingTicket(t *testing.T) {
	sessions := &fakeSessionCreator{gameID: model.NewGameId()}
	mm := New(sessions)

	_, _, _, err := mm.Join(context.Background(), "alice", "Alice", model.DefaultConfiguration())
	require.NoError(t, err)
	assert.Equal(t, 1, mm.QueueLength())

	mm.Leave("alice")
	assert.Equal(t, 0, mm.QueueLength())

	// alice can now queue again without ErrAlreadyQueued.
	_, _, _, err = mm.Join(context.Background(), "alice", "Alice", model.DefaultConfiguration())
	require.NoError(t, err)
}

func TestLeaveUnknownPlayerIsNoop(t *testing.T) {
	mm := New(&fakeSessionCreator{gameID: model.NewGameId()})
	assert.NotPanics(t, func() { mm.Leave("nobody") })
}
