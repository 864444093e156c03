package event

import "github.com/corridors/server/internal/domain/model"

// GameCreatedPayload announces a freshly created session.
type GameCreatedPayload struct {
	Slots [2]model.PlayerSlot `json:"slots"`
}

// GameStatePayload carries a full session snapshot, used for subscribe-time
// hello messages and analysis replies.
type GameStatePayload struct {
	Status      model.Status    `json:"status"`
	CurrentTurn model.SlotIndex `json:"current_turn"`
	MoveCount   int             `json:"move_count"`
}

// MoveMadePayload carries one applied move.
type MoveMadePayload struct {
	PlayerID    model.PlayerId `json:"player_id"`
	Action      string         `json:"action"`
	MoveNumber  int            `json:"move_number"`
	CurrentTurn model.SlotIndex `json:"current_turn"`
	Evaluation  *float64       `json:"evaluation,omitempty"`
}

// GameEndedPayload carries the termination outcome.
type GameEndedPayload struct {
	Winner model.SlotIndex          `json:"winner,omitempty"`
	Reason model.TerminationReason  `json:"reason"`
}

// PlayerConnectedPayload / PlayerDisconnectedPayload announce transport-level
// presence changes in a room.
type PlayerConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
	Population   int    `json:"population"`
}

type PlayerDisconnectedPayload struct {
	ConnectionID string `json:"connection_id"`
	Population   int    `json:"population"`
}

// ErrorPayload reports a client-visible failure (spec.md §7 propagation
// policy — never used for InternalError details, which go to logs only).
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
