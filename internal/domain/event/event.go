// Package event defines the outbound message envelope broadcast by the Room
// Fan-out layer, grounded on the teacher's domain/event package: a typed
// Kind, a Priority used for backpressure shedding, and an opaque Payload the
// fan-out never interprets (spec.md §4.5 "Message envelope").
package event

import (
	"time"

	"github.com/corridors/server/internal/domain/model"
)

// Kind is the outbound message type tag (spec.md §6.4).
type Kind int16

const (
	GameCreated Kind = iota + 1
	GameState
	MoveMade
	GameEnded
	PlayerConnected
	PlayerDisconnected
	Ping
	Pong
	ErrorMessage
)

func (k Kind) String() string {
	switch k {
	case GameCreated:
		return "game_created"
	case GameState:
		return "game_state"
	case MoveMade:
		return "move"
	case GameEnded:
		return "game_ended"
	case PlayerConnected:
		return "player_connected"
	case PlayerDisconnected:
		return "player_disconnected"
	case Ping:
		return "ping"
	case Pong:
		return "pong"
	case ErrorMessage:
		return "error"
	default:
		return "unknown"
	}
}

// Priority controls which events get dropped first when a subscriber's
// mailbox is saturated (spec.md §4.5 dead-connection / backpressure policy).
type Priority int32

const (
	PriorityLow    Priority = 10
	PriorityNormal Priority = 20
	PriorityHigh   Priority = 30
)

func priorityFor(k Kind) Priority {
	switch k {
	case GameEnded:
		return PriorityHigh
	case MoveMade, GameCreated:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// Eventer is the contract every broadcast payload satisfies. The fan-out
// layer only ever reads GetGameID/GetPriority/GetKind — the Payload is
// opaque bytes-shaped data left to the marshaller at the transport edge.
type Eventer interface {
	GetGameID() model.GameId
	GetKind() Kind
	GetPriority() Priority
	GetCorrelationID() string
	GetOccurredAt() time.Time
	GetPayload() any
}

// Event is the concrete, JSON-friendly implementation used throughout the
// core.
type Event struct {
	GameID        model.GameId `json:"game_id"`
	Kind          Kind         `json:"kind"`
	KindName      string       `json:"type"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
	Payload       any          `json:"payload,omitempty"`
}

// New builds an Event, stamping the wire-friendly type name and timestamp.
func New(gameID model.GameId, kind Kind, payload any) *Event {
	return &Event{
		GameID:     gameID,
		Kind:       kind,
		KindName:   kind.String(),
		OccurredAt: time.Now(),
		Payload:    payload,
	}
}

// WithCorrelationID tags a reply event with the inbound request it answers.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

func (e *Event) GetGameID() model.GameId        { return e.GameID }
func (e *Event) GetKind() Kind                   { return e.Kind }
func (e *Event) GetPriority() Priority           { return priorityFor(e.Kind) }
func (e *Event) GetCorrelationID() string        { return e.CorrelationID }
func (e *Event) GetOccurredAt() time.Time        { return e.OccurredAt }
func (e *Event) GetPayload() any                 { return e.Payload }

var _ Eventer = (*Event)(nil)
