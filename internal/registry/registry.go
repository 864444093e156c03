package registry

import (
	"sync"

	"github.com/corridors/server/internal/domain/model"
)

// SessionRegistry is the renamed Hub: a concurrent GameId -> *GuardedSession
// map. It holds no game logic of its own — everything it protects belongs
// to model.Session and the packages that operate on it (turnrouter,
// aischeduler, reaper).
type SessionRegistry struct {
	sessions sync.Map // model.GameId -> *GuardedSession
}

// NewSessionRegistry constructs an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{}
}

// Create registers a brand-new session. It is the only way a GameId enters
// the registry; callers are expected to have minted a fresh GameId
// (model.NewGameId), so there is no meaningful "already exists" case, unlike
// the teacher's idempotent Register — session creation is a one-shot event,
// not a reconnect.
func (r *SessionRegistry) Create(s *model.Session) *GuardedSession {
	g := newGuardedSession(s)
	r.sessions.Store(s.GameID, g)
	return g
}

// Get returns the guarded session for id, or false if no such session is
// registered (spec.md §7 not_found).
func (r *SessionRegistry) Get(id model.GameId) (*GuardedSession, bool) {
	v, ok := r.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*GuardedSession), true
}

// Delete removes a session from the registry. It does not close the
// session's Search Adapter; its callers (the Reaper and the Turn Router's
// DeleteSession) do that themselves.
func (r *SessionRegistry) Delete(id model.GameId) {
	r.sessions.Delete(id)
}

// Range visits every registered session. The Reaper uses this for its
// sweep pass; visit order is unspecified.
func (r *SessionRegistry) Range(fn func(id model.GameId, g *GuardedSession) bool) {
	r.sessions.Range(func(key, value any) bool {
		return fn(key.(model.GameId), value.(*GuardedSession))
	})
}

// Count reports how many sessions are currently registered.
func (r *SessionRegistry) Count() int {
	n := 0
	r.Range(func(model.GameId, *GuardedSession) bool {
		n++
		return true
	})
	return n
}
