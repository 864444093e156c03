// Package model holds the shared value types of the Corridors game core:
// identifiers, sessions, moves, configuration snapshots and matchmaking
// tickets. It intentionally has no behavior beyond small invariant-preserving
// constructors — the orchestration lives in the registry, turnrouter,
// aischeduler, matchmaker and reaper packages.
package model

import "github.com/google/uuid"

// GameId uniquely identifies a session for the lifetime of the process.
type GameId uuid.UUID

// NewGameId mints a fresh, never-reused identifier.
func NewGameId() GameId {
	return GameId(uuid.New())
}

func (g GameId) String() string {
	return uuid.UUID(g).String()
}

// PlayerId identifies a human player across sessions. Machine players do not
// have a stable PlayerId; they are addressed by PlayerSlot.Kind alone.
type PlayerId string

// SlotIndex is 1 or 2; slot 1 moves first.
type SlotIndex int

const (
	Slot1 SlotIndex = 1
	Slot2 SlotIndex = 2
)

// Other returns the opposing slot.
func (s SlotIndex) Other() SlotIndex {
	if s == Slot1 {
		return Slot2
	}
	return Slot1
}

// PlayerKind tags a slot as human- or machine-controlled, replacing
// inheritance with a tagged variant per spec.md §9.
type PlayerKind int

const (
	Human PlayerKind = iota + 1
	Machine
)

func (k PlayerKind) String() string {
	if k == Machine {
		return "machine"
	}
	return "human"
}

// PlayerSlot is one of the two immutable seats in a session.
type PlayerSlot struct {
	Index       SlotIndex
	Kind        PlayerKind
	PlayerID    PlayerId // empty for Machine slots
	DisplayName string
}
