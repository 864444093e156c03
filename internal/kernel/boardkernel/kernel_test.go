package boardkernel

import (
	"testing"

	"github.com/corridors/server/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineLegalActionsNonEmpty(t *testing.T) {
	e := New(1).(*Engine)
	actions := e.board.LegalActions()
	assert.NotEmpty(t, actions)
}

func TestEngineApplyMoveRejectsOutOfRange(t *testing.T) {
	e := New(1)
	err := e.ApplyMove("*(99,99)", false)
	assert.ErrorIs(t, err, kernel.ErrInvalidAction)
}

func TestEngineApplyMoveAcceptsLegalMove(t *testing.T) {
	e := New(2).(*Engine)
	actions := e.board.LegalActions()
	require.NotEmpty(t, actions)
	err := e.ApplyMove(actions[0], false)
	assert.NoError(t, err)
}

func TestEngineRunSimulationsAccumulatesVisits(t *testing.T) {
	e := New(3).(*Engine)
	got := e.RunSimulations(50)
	assert.Equal(t, 50, got)
	assert.Equal(t, 50, e.VisitCount())
	sorted := e.SortedActions(false)
	require.NotEmpty(t, sorted)
	total := 0
	for _, s := range sorted {
		total += s.Visits
	}
	assert.Equal(t, 50, total)
}

func TestEngineEvaluationAbsentBeforeSearch(t *testing.T) {
	e := New(4)
	_, ok := e.Evaluation()
	assert.False(t, ok)
}

func TestEngineResetReturnsToInitialPosition(t *testing.T) {
	e := New(5).(*Engine)
	actions := e.board.LegalActions()
	require.NoError(t, e.ApplyMove(actions[0], false))
	e.Reset()
	assert.False(t, e.IsTerminal())
	assert.Equal(t, 0, e.VisitCount())
}

func TestPlayingLegalMovesEventuallyTerminates(t *testing.T) {
	e := New(6).(*Engine)
	for i := 0; i < 200 && !e.IsTerminal(); i++ {
		actions := e.board.LegalActions()
		require.NotEmpty(t, actions)
		// Step the mover's token toward its goal row; actions[0] alone only
		// shuffles both tokens sideways and never ends the game.
		goal := e.board.goalRow(e.board.ToMove())
		pick, bestDist := actions[0], BoardSize+1
		for _, a := range actions {
			kind, _, y, err := parseAction(a)
			if err == nil && kind == actionMove && absDiff(y, goal) < bestDist {
				pick, bestDist = a, absDiff(y, goal)
			}
		}
		require.NoError(t, e.ApplyMove(pick, false))
	}
	assert.True(t, e.IsTerminal())
}

func TestWallPlacementNeverFullyBlocksAPath(t *testing.T) {
	e := New(7).(*Engine)
	for i := 0; i < 8; i++ {
		assert.True(t, e.board.hasPath(0))
		assert.True(t, e.board.hasPath(1))
		actions := e.board.LegalActions()
		require.NotEmpty(t, actions)
		// Token moves come first in LegalActions; pick the first wall.
		pick := actions[0]
		for _, a := range actions {
			if a[0] == 'H' || a[0] == 'V' {
				pick = a
				break
			}
		}
		if err := e.ApplyMove(pick, false); err != nil {
			break
		}
	}
}
