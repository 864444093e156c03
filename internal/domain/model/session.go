package model

import "time"

// Status is the lifecycle stage of a Session. Transitions only ever move
// pending -> in_progress -> {completed, cancelled}, or in_progress ->
// {completed, cancelled} (spec.md §3).
type Status int

const (
	Pending Status = iota + 1
	InProgress
	Completed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TerminationReason records why a session left in_progress.
type TerminationReason string

const (
	ReasonGoalReached TerminationReason = "goal_reached"
	ReasonResignation TerminationReason = "resignation"
	ReasonCancelled   TerminationReason = "cancelled"
	ReasonStale       TerminationReason = "stale"
)

// Move is one applied action, append-only within a Session's history.
type Move struct {
	PlayerID   PlayerId
	Action     string
	Number     int // dense, strictly increasing, starting at 1
	At         time.Time
	Evaluation *float64 // optional root evaluation at the time of the move
}

// Configuration is immutable for the life of a session; it is snapshotted
// at session creation and handed to the Search Adapter constructor.
type Configuration struct {
	ExplorationConstant float64
	RandomSeed          int64
	MinSimulations      int
	MaxSimulations      int
	UseEvaluator        bool // rollout vs evaluator
	VisitBasedDecision   bool // visit-based vs value-based decision
}

// DefaultConfiguration mirrors the defaults a fresh session gets when the
// caller does not specify one.
func DefaultConfiguration() Configuration {
	return Configuration{
		ExplorationConstant: 1.41421356,
		MinSimulations:      200,
		MaxSimulations:      20000,
		UseEvaluator:        false,
		VisitBasedDecision:  true,
	}
}

// Snapshot is an immutable value copied out of a Session under its guard —
// safe to hand to other components without further synchronization
// (spec.md Glossary).
type Snapshot struct {
	GameID            GameId
	Slots             [2]PlayerSlot
	Status            Status
	CurrentTurn       SlotIndex
	MoveCount         int
	History           []Move
	Winner            SlotIndex // zero value means no winner yet
	TerminationReason TerminationReason
	CreatedAt         time.Time
	LastActivityAt    time.Time
	Config            Configuration
}

// SlotFor returns the PlayerSlot for a given slot index.
func (s Snapshot) SlotFor(idx SlotIndex) PlayerSlot {
	return s.Slots[idx-1]
}

// Session owns its Search Adapter handle. It holds no lock itself: the
// per-session mutex of spec.md §5's locking discipline is
// registry.GuardedSession's.
// The Search Adapter type itself is injected as an interface (SearchEngine)
// to avoid an import cycle between model and searchadapter.
type Session struct {
	GameID GameId
	Slots  [2]PlayerSlot
	Config Configuration
	Engine SearchEngine

	Status            Status
	CurrentTurn       SlotIndex
	History           []Move
	Winner            SlotIndex
	TerminationReason TerminationReason
	CreatedAt         time.Time
	LastActivityAt    time.Time
}

// SearchEngine is the subset of the Search Adapter contract the Session
// needs to hold a reference to. The full contract lives in searchadapter.Adapter.
type SearchEngine interface {
	Close() error
}

// NewSession allocates a session in pending status with slot 1 to move.
func NewSession(id GameId, slot1, slot2 PlayerSlot, cfg Configuration, engine SearchEngine) *Session {
	now := time.Now()
	return &Session{
		GameID:         id,
		Slots:          [2]PlayerSlot{slot1, slot2},
		Config:         cfg,
		Engine:         engine,
		Status:         Pending,
		CurrentTurn:    Slot1,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// SlotFor returns the slot at the given index (1 or 2).
func (s *Session) SlotFor(idx SlotIndex) PlayerSlot {
	return s.Slots[idx-1]
}

// ToSnapshot copies out an immutable value object. Callers must hold the
// session's guard (outside this package, via registry.GuardedSession) while
// calling this to observe a consistent view.
func (s *Session) ToSnapshot() Snapshot {
	hist := make([]Move, len(s.History))
	copy(hist, s.History)
	return Snapshot{
		GameID:            s.GameID,
		Slots:             s.Slots,
		Status:            s.Status,
		CurrentTurn:       s.CurrentTurn,
		MoveCount:         len(s.History),
		History:           hist,
		Winner:            s.Winner,
		TerminationReason: s.TerminationReason,
		CreatedAt:         s.CreatedAt,
		LastActivityAt:    s.LastActivityAt,
		Config:            s.Config,
	}
}
