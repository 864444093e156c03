// Package matchmaker implements spec.md §4.3's "closely related" Matchmaker:
// a single FIFO ticket queue pairing two waiting human players into a new
// session. Idempotent single-ticket-per-player enforcement is grounded on
// the teacher's hub.go LoadOrStore registration idiom (sync.Map as the
// dedup set; the queue itself is a plain guarded slice, since the teacher's
// Hub has no ordered-queue analogue to borrow from).
package matchmaker

import (
	"context"
	"sync"
	"time"

	"github.com/corridors/server/internal/domain/model"
)

// SessionCreator is the subset of turnrouter.Router the Matchmaker calls to
// mint a session once two tickets pair. Declared locally so tests can
// substitute a fake without constructing a real Router.
type SessionCreator interface {
	CreateSession(ctx context.Context, cfg model.Configuration, slot1, slot2 model.PlayerSlot) (model.Snapshot, error)
}

type ticketEntry struct {
	model.MatchmakingTicket
	matched chan model.GameId
}

// Ticket is returned to a caller whose Join did not pair immediately. Matched
// fires exactly once, carrying the GameId of the session this ticket was
// paired into — the caller (the HTTP/WS edge, out of this package's scope)
// selects on it to learn when to stop waiting and subscribe the client to
// the new room. This channel-based notification is the Open Question
// resolution recorded in DESIGN.md: spec.md says pairing "return[s] the new
// GameId to both clients" but only describes the synchronous path for the
// second arrival; the first arrival needs an asynchronous handle since its
// Join call already returned a "waiting" result.
type Ticket struct {
	PlayerID model.PlayerId
	Position int
	Matched  <-chan model.GameId
}

// Matchmaker holds the single FIFO ticket queue (spec.md §4.3).
type Matchmaker struct {
	sessions SessionCreator

	mu    sync.Mutex
	queue []*ticketEntry

	byPlayer sync.Map // model.PlayerId -> *ticketEntry
}

// New constructs a Matchmaker backed by sessions for pairing.
func New(sessions SessionCreator) *Matchmaker {
	return &Matchmaker{sessions: sessions}
}

// Join enqueues a ticket for playerID. If another ticket is already waiting,
// the two are paired immediately: a session is created with both as human
// slots, both tickets are consumed, and the new GameId is returned directly
// (matched=true). Otherwise playerID's ticket joins the back of the queue
// and the caller gets a Ticket handle to learn of a later pairing.
//
// A player with an already-active ticket gets model.ErrAlreadyQueued
// (spec.md §3: "at most one active ticket per player identifier").
func (m *Matchmaker) Join(ctx context.Context, playerID model.PlayerId, displayName string, cfg model.Configuration) (model.GameId, bool, *Ticket, error) {
	if _, loaded := m.byPlayer.Load(playerID); loaded {
		return model.GameId{}, false, nil, model.ErrAlreadyQueued
	}

	m.mu.Lock()
	if len(m.queue) > 0 {
		waiting := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		m.byPlayer.Delete(waiting.PlayerID)

		slot1 := model.PlayerSlot{Kind: model.Human, PlayerID: waiting.PlayerID, DisplayName: waiting.DisplayName}
		slot2 := model.PlayerSlot{Kind: model.Human, PlayerID: playerID, DisplayName: displayName}
		// The waiting ticket queued first; its configuration governs the
		// session (an arbitrary but documented tie-break — see DESIGN.md).
		snap, err := m.sessions.CreateSession(ctx, waiting.Config, slot1, slot2)
		if err != nil {
			return model.GameId{}, false, nil, err
		}
		waiting.matched <- snap.GameID
		close(waiting.matched)
		return snap.GameID, true, nil, nil
	}

	t := &ticketEntry{
		MatchmakingTicket: model.MatchmakingTicket{
			PlayerID:    playerID,
			DisplayName: displayName,
			Config:      cfg,
			EnqueuedAt:  time.Now(),
		},
		matched: make(chan model.GameId, 1),
	}
	m.queue = append(m.queue, t)
	position := len(m.queue)
	m.mu.Unlock()
	m.byPlayer.Store(playerID, t)

	return model.GameId{}, false, &Ticket{PlayerID: playerID, Position: position, Matched: t.matched}, nil
}

// Leave cancels playerID's ticket, if any. An unknown or already-consumed
// player is a no-op (spec.md §4 edge cases: "matchmaking_leave on an
// unknown player is a no-op").
func (m *Matchmaker) Leave(playerID model.PlayerId) {
	v, ok := m.byPlayer.LoadAndDelete(playerID)
	if !ok {
		return
	}
	t := v.(*ticketEntry)

	m.mu.Lock()
	for i, q := range m.queue {
		if q == t {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
}

// QueueLength reports how many tickets are currently waiting.
func (m *Matchmaker) QueueLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
