package registry

import (
	"sync"
	"testing"

	"github.com/corridors/server/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct{ closed bool }

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

func newTestSession() *model.Session {
	slot1 := model.PlayerSlot{Index: model.Slot1, Kind: model.Human, PlayerID: "p1"}
	slot2 := model.PlayerSlot{Index: model.Slot2, Kind: model.Machine}
	return model.NewSession(model.NewGameId(), slot1, slot2, model.DefaultConfiguration(), &fakeEngine{})
}

func TestCreateThenGetRoundTrips(t *testing.T) {
	r := NewSessionRegistry()
	s := newTestSession()

	g := r.Create(s)
	require.NotNil(t, g)

	got, ok := r.Get(s.GameID)
	require.True(t, ok)
	assert.Equal(t, s.GameID, got.Snapshot().GameID)
}

func TestGetMissingReturnsFalse(t *testing.T) {
	r := NewSessionRegistry()
	_, ok := r.Get(model.NewGameId())
	assert.False(t, ok)
}

func TestDeleteRemovesSession(t *testing.T) {
	r := NewSessionRegistry()
	s := newTestSession()
	r.Create(s)

	r.Delete(s.GameID)
	_, ok := r.Get(s.GameID)
	assert.False(t, ok)
}

func TestCountAndRangeSeeEverySession(t *testing.T) {
	r := NewSessionRegistry()
	ids := map[model.GameId]bool{}
	for i := 0; i < 5; i++ {
		s := newTestSession()
		ids[s.GameID] = true
		r.Create(s)
	}

	assert.Equal(t, 5, r.Count())

	seen := map[model.GameId]bool{}
	r.Range(func(id model.GameId, g *GuardedSession) bool {
		seen[id] = true
		return true
	})
	assert.Equal(t, ids, seen)
}

func TestGuardSerializesConcurrentAccess(t *testing.T) {
	r := NewSessionRegistry()
	s := newTestSession()
	g := r.Create(s)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.WithLock(func(s *model.Session) {
				s.History = append(s.History, model.Move{Number: len(s.History) + 1})
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, g.Snapshot().MoveCount)
}

func TestTryLockFailsWhileGuardHeld(t *testing.T) {
	r := NewSessionRegistry()
	s := newTestSession()
	g := r.Create(s)

	release := make(chan struct{})
	holding := make(chan struct{})
	go g.WithLock(func(*model.Session) {
		close(holding)
		<-release
	})
	<-holding

	ok := g.TryLock(func(*model.Session) {})
	assert.False(t, ok)
	close(release)
}
