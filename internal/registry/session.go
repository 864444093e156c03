// Package registry is the Session Registry (spec.md §4.2): the
// authoritative in-memory map of live Sessions, each guarded by its own
// mutex so that two operations against different games never contend, and
// two operations against the same game always serialize (spec.md §5's
// locking discipline: registry lock, then session guard, then fan-out
// lock — never the reverse). It is grounded on the teacher's
// registry.Hub, with UserID->Celler generalized to GameId->*GuardedSession.
package registry

import (
	"sync"

	"github.com/corridors/server/internal/domain/model"
)

// GuardedSession pairs a model.Session with the mutex that every
// state-changing operation (apply_move, resign, cancellation) must hold
// before touching it.
type GuardedSession struct {
	mu      sync.Mutex
	session *model.Session
}

func newGuardedSession(s *model.Session) *GuardedSession {
	return &GuardedSession{session: s}
}

// WithLock runs fn with the session's guard held, the only sanctioned way
// to read or mutate the underlying *model.Session from outside this
// package.
func (g *GuardedSession) WithLock(fn func(s *model.Session)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.session)
}

// TryLock attempts to acquire the guard without blocking, used by the
// Reaper so a sweep never stalls behind an in-flight player operation
// (spec.md §4.4).
func (g *GuardedSession) TryLock(fn func(s *model.Session)) bool {
	if !g.mu.TryLock() {
		return false
	}
	defer g.mu.Unlock()
	fn(g.session)
	return true
}

// Snapshot takes the guard just long enough to copy out an immutable view.
func (g *GuardedSession) Snapshot() model.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.ToSnapshot()
}
