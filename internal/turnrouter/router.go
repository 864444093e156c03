// Package turnrouter implements spec.md §4.2: session lifecycle operations
// (create/get/list/delete) and the apply_move protocol that validates and
// commits a move, updates turn state, and fans results out to subscribers.
// It is the orchestration seam the rest of the core is built around —
// grounded on the teacher's internal/service/delivery.go thin-orchestration
// shape, with handler/amqp/bind.go's panic-recovery-and-classify pattern
// supplying translateErr.
package turnrouter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/corridors/server/internal/domain/event"
	"github.com/corridors/server/internal/domain/model"
	"github.com/corridors/server/internal/fanout"
	"github.com/corridors/server/internal/kernel"
	"github.com/corridors/server/internal/registry"
	"github.com/corridors/server/internal/searchadapter"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Enqueuer is the AI Scheduler's ingress, seen from the Turn Router's side
// of the dependency. Defining it here (rather than importing aischeduler
// directly) breaks what would otherwise be an import cycle: the AI
// Scheduler's workers call back into the Turn Router (via PlayMachineTurn)
// to apply the machine's move. aischeduler imports this package to satisfy
// Enqueuer with fx.As and to declare *Router as its MoveApplier, following
// the same seam the teacher draws between Hubber and its concrete Hub.
type Enqueuer interface {
	Enqueue(gameID model.GameId) error
}

const leaderboardCacheKey = "leaderboard"

// Router is the Session Registry plus Turn Router rolled into one
// component, matching spec.md §4.2's single "Responsibility" statement
// that the two own one set of operations together.
type Router struct {
	sessions    *registry.SessionRegistry
	adapters    searchadapter.Factory
	fanout      *fanout.RoomRegistry
	ai          Enqueuer
	turnTimeout time.Duration

	statsMu sync.Mutex
	stats   map[model.PlayerId]*model.PlayerStatsSnapshot

	statsCache *lru.Cache[model.PlayerId, model.PlayerStatsSnapshot]
	lbCache    *lru.Cache[string, []model.PlayerStatsSnapshot]
}

// New constructs a Router. turnTimeout is the generous default deadline
// spec.md §5 requires ("e.g. 5x the expected search time"), applied as the
// deadline of the search budgets (EnsureBudget) the Router requests; its
// other Search Adapter calls carry no deadline of their own.
func New(sessions *registry.SessionRegistry, adapters searchadapter.Factory, rooms *fanout.RoomRegistry, ai Enqueuer, turnTimeout time.Duration) *Router {
	statsCache, _ := lru.New[model.PlayerId, model.PlayerStatsSnapshot](4096)
	lbCache, _ := lru.New[string, []model.PlayerStatsSnapshot](1)
	return &Router{
		sessions:    sessions,
		adapters:    adapters,
		fanout:      rooms,
		ai:          ai,
		turnTimeout: turnTimeout,
		stats:       make(map[model.PlayerId]*model.PlayerStatsSnapshot),
		statsCache:  statsCache,
		lbCache:     lbCache,
	}
}

func (r *Router) deadline() time.Time {
	if r.turnTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(r.turnTimeout)
}

// CreateSession allocates a GameId, constructs a Search Adapter from cfg,
// sets status in_progress, and — if slot 1 is a machine — enqueues it with
// the AI Scheduler (spec.md §4.2 create_session).
func (r *Router) CreateSession(ctx context.Context, cfg model.Configuration, slot1, slot2 model.PlayerSlot) (model.Snapshot, error) {
	gameID := model.NewGameId()
	slot1.Index, slot2.Index = model.Slot1, model.Slot2
	adapter := r.adapters(gameID, cfg)

	session := model.NewSession(gameID, slot1, slot2, cfg, adapter)
	session.Status = model.InProgress
	g := r.sessions.Create(session)
	snap := g.Snapshot()

	r.fanout.Broadcast(event.New(gameID, event.GameCreated, event.GameCreatedPayload{
		Slots: snap.Slots,
	}))

	if slot1.Kind == model.Machine {
		if err := r.ai.Enqueue(gameID); err != nil {
			return snap, fmt.Errorf("%w: enqueue machine opener: %v", model.ErrInternal, err)
		}
	}
	return snap, nil
}

// GetSession returns a point-in-time snapshot (spec.md §4.2 get_session).
func (r *Router) GetSession(gameID model.GameId) (model.Snapshot, error) {
	g, ok := r.sessions.Get(gameID)
	if !ok {
		return model.Snapshot{}, model.ErrNotFound
	}
	return g.Snapshot(), nil
}

// ListFilter narrows ListSessions' result set.
type ListFilter struct {
	Status *model.Status
	Player model.PlayerId
	Limit  int
	Offset int
}

// ListSessions returns snapshots ordered by creation time descending,
// applying filter (spec.md §4.2 list_sessions).
func (r *Router) ListSessions(filter ListFilter) []model.Snapshot {
	var all []model.Snapshot
	r.sessions.Range(func(_ model.GameId, g *registry.GuardedSession) bool {
		snap := g.Snapshot()
		if filter.Status != nil && snap.Status != *filter.Status {
			return true
		}
		if filter.Player != "" && snap.SlotFor(model.Slot1).PlayerID != filter.Player && snap.SlotFor(model.Slot2).PlayerID != filter.Player {
			return true
		}
		all = append(all, snap)
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	start := filter.Offset
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return all[start:end]
}

// DeleteSession marks cancelled, closes the Search Adapter, broadcasts
// ended, and removes the session (spec.md §4.2 delete_session). It is
// idempotent-safe: a concurrent second call observes the session already
// gone and reports NotFound without changing any state.
func (r *Router) DeleteSession(gameID model.GameId) error {
	g, ok := r.sessions.Get(gameID)
	if !ok {
		return model.ErrNotFound
	}

	var engine model.SearchEngine
	var wasInProgress bool
	var alreadyGone bool
	g.WithLock(func(s *model.Session) {
		if s.TerminationReason != "" || s.Status == model.Completed {
			alreadyGone = true
			return
		}
		wasInProgress = s.Status == model.InProgress
		s.Status = model.Cancelled
		s.TerminationReason = model.ReasonCancelled
		s.LastActivityAt = time.Now()
		engine = s.Engine
	})
	if alreadyGone {
		return model.ErrNotFound
	}

	r.sessions.Delete(gameID)
	if engine != nil {
		_ = engine.Close()
	}
	if wasInProgress {
		r.recordCompletion(g.Snapshot())
	}
	r.fanout.Broadcast(event.New(gameID, event.GameEnded, event.GameEndedPayload{
		Reason: model.ReasonCancelled,
	}))
	return nil
}

// Resign sets status completed with winner = the other slot (spec.md §4.2
// resign).
func (r *Router) Resign(gameID model.GameId, player model.PlayerId) (model.SlotIndex, error) {
	g, ok := r.sessions.Get(gameID)
	if !ok {
		return 0, model.ErrNotFound
	}

	var winner model.SlotIndex
	var terminalErr error
	g.WithLock(func(s *model.Session) {
		if s.Status != model.InProgress {
			terminalErr = model.ErrNotInProgress
			return
		}
		var resigningSlot model.SlotIndex
		switch player {
		case s.Slots[0].PlayerID:
			resigningSlot = model.Slot1
		case s.Slots[1].PlayerID:
			resigningSlot = model.Slot2
		default:
			terminalErr = model.ErrNotFound
			return
		}
		winner = resigningSlot.Other()
		s.Status = model.Completed
		s.Winner = winner
		s.TerminationReason = model.ReasonResignation
		s.LastActivityAt = time.Now()
	})
	if terminalErr != nil {
		return 0, terminalErr
	}

	snap := g.Snapshot()
	r.recordCompletion(snap)
	r.fanout.Broadcast(event.New(gameID, event.GameEnded, event.GameEndedPayload{
		Winner: winner,
		Reason: model.ReasonResignation,
	}))
	return winner, nil
}

// machineMove is the sentinel apply_move passes through when the AI
// Scheduler supplies a move, bypassing the human-identity check (spec.md
// §4.3: "call Turn Router apply_move with a sentinel indicating 'machine
// move'").
const machineMove model.PlayerId = ""

// ApplyMove runs the seven-step protocol of spec.md §4.2 under the
// session's guard, then broadcasts and conditionally enqueues AI work
// outside it.
//
// player is the human identity making the move, or the empty string if
// this call originates from the AI Scheduler on behalf of a machine slot.
func (r *Router) ApplyMove(ctx context.Context, gameID model.GameId, player model.PlayerId, action string) (model.Snapshot, error) {
	g, ok := r.sessions.Get(gameID)
	if !ok {
		return model.Snapshot{}, model.ErrNotFound
	}

	var (
		snap        model.Snapshot
		err         error
		movedSlot   model.SlotIndex
		becameOver  bool
		nextIsMachine bool
	)

	g.WithLock(func(s *model.Session) {
		if s.Status != model.InProgress {
			err = model.ErrNotInProgress
			return
		}
		movedSlot = s.CurrentTurn
		if player != machineMove && s.SlotFor(movedSlot).PlayerID != player {
			err = model.ErrNotYourTurn
			return
		}

		perspective := movedSlot == model.Slot1
		if applyErr := s.Engine.(searchAdapter).ApplyMove(ctx, action, perspective); applyErr != nil {
			err = translateErr(applyErr)
			return
		}

		s.History = append(s.History, model.Move{
			PlayerID: s.SlotFor(movedSlot).PlayerID,
			Action:   action,
			Number:   len(s.History) + 1,
			At:       time.Now(),
		})
		s.LastActivityAt = time.Now()
		s.CurrentTurn = movedSlot.Other()

		terminal, termErr := s.Engine.(searchAdapter).IsTerminal(ctx)
		if termErr == nil && terminal {
			s.Status = model.Completed
			s.Winner = movedSlot
			s.TerminationReason = model.ReasonGoalReached
			becameOver = true
		}
		nextIsMachine = s.SlotFor(s.CurrentTurn).Kind == model.Machine
		snap = s.ToSnapshot()
	})
	if err != nil {
		return model.Snapshot{}, err
	}

	r.fanout.Broadcast(event.New(gameID, event.MoveMade, event.MoveMadePayload{
		PlayerID:    snap.History[len(snap.History)-1].PlayerID,
		Action:      action,
		MoveNumber:  len(snap.History),
		CurrentTurn: snap.CurrentTurn,
	}))

	if becameOver {
		r.recordCompletion(snap)
		r.fanout.Broadcast(event.New(gameID, event.GameEnded, event.GameEndedPayload{
			Winner: snap.Winner,
			Reason: model.ReasonGoalReached,
		}))
		return snap, nil
	}

	if nextIsMachine {
		if enqErr := r.ai.Enqueue(gameID); enqErr != nil {
			// Backpressure here means the machine side stalls, not that the
			// just-applied human move fails — it already committed.
			return snap, nil
		}
	}
	return snap, nil
}

// PlayMachineTurn computes and applies the current mover's best action when
// that slot is machine-controlled (spec.md §4.3: the AI Scheduler's worker
// callback). It tolerates having been enqueued against a position that has
// since moved on — a stale worker simply finds the slot no longer machine's
// turn and returns nil rather than erroring.
func (r *Router) PlayMachineTurn(ctx context.Context, gameID model.GameId) error {
	g, ok := r.sessions.Get(gameID)
	if !ok {
		return model.ErrNotFound
	}

	var (
		action string
		skip   bool
		err    error
	)
	g.WithLock(func(s *model.Session) {
		if s.Status != model.InProgress || s.SlotFor(s.CurrentTurn).Kind != model.Machine {
			skip = true
			return
		}
		adapter := s.Engine.(searchAdapter)
		if _, budgetErr := adapter.EnsureBudget(ctx, s.Config.MinSimulations, r.deadline()); budgetErr != nil {
			err = budgetErr
			return
		}
		action, err = adapter.BestAction(ctx, 0)
	})
	if skip {
		return nil
	}
	if err != nil {
		// AdapterClosed means the session is already gone (deleted or
		// reaped concurrently) — nothing to report or clean up.
		if errors.Is(err, model.ErrAdapterClosed) {
			return nil
		}
		// spec.md §7 classifies EngineTimeout as retriable, not terminal:
		// a hung search is not evidence the session itself is broken, so
		// re-enqueue the machine turn instead of cancelling the game. A
		// failure to re-enqueue (AlreadyQueued, QueueFull) just means
		// another worker pass will pick it up, or the caller's own
		// backpressure broadcast already told clients the game is stuck.
		if errors.Is(err, model.ErrEngineTimeout) {
			_ = r.ai.Enqueue(gameID)
			return err
		}
		// Open Question resolution (SPEC_FULL.md §9.1 #2): any other
		// search adapter failure is not retryable by re-enqueueing the
		// same game, so the session is cancelled here rather than left
		// stuck waiting on a worker that will never succeed.
		cancelled := false
		g.WithLock(func(s *model.Session) {
			if s.Status != model.InProgress {
				return
			}
			s.Status = model.Cancelled
			s.TerminationReason = model.ReasonCancelled
			cancelled = true
		})
		if cancelled {
			r.fanout.Broadcast(event.New(gameID, event.GameEnded, event.GameEndedPayload{
				Reason: model.ReasonCancelled,
			}))
		}
		return translateErr(err)
	}

	_, err = r.ApplyMove(ctx, gameID, machineMove, action)
	return err
}

// LegalMoves proxies to the Search Adapter (spec.md §4.2 legal_moves). The
// native kernel reports legality; the Turn Router never parses actions.
func (r *Router) LegalMoves(ctx context.Context, gameID model.GameId) ([]string, error) {
	g, ok := r.sessions.Get(gameID)
	if !ok {
		return nil, model.ErrNotFound
	}
	var actions []string
	var err error
	g.WithLock(func(s *model.Session) {
		actions, err = s.Engine.(searchAdapter).LegalActions(ctx)
	})
	return actions, translateErr(err)
}

// Analyse ensures target simulations and returns sorted actions plus
// evaluation (spec.md §4.2 analyse).
func (r *Router) Analyse(ctx context.Context, gameID model.GameId, target int) ([]kernel.ScoredAction, float64, bool, error) {
	g, ok := r.sessions.Get(gameID)
	if !ok {
		return nil, 0, false, model.ErrNotFound
	}
	var (
		actions []kernel.ScoredAction
		value   float64
		hasVal  bool
		err     error
	)
	g.WithLock(func(s *model.Session) {
		adapter := s.Engine.(searchAdapter)
		if _, budgetErr := adapter.EnsureBudget(ctx, target, r.deadline()); budgetErr != nil {
			err = budgetErr
			return
		}
		actions, err = adapter.SortedActions(ctx, s.CurrentTurn == model.Slot1)
		if err != nil {
			return
		}
		value, hasVal, err = adapter.Evaluation(ctx)
	})
	return actions, value, hasVal, translateErr(err)
}

// Hint returns the best action with a confidence derived from the top
// action's share of total visits (spec.md §4.2 hint).
func (r *Router) Hint(ctx context.Context, gameID model.GameId, target int) (action string, confidence float64, err error) {
	g, ok := r.sessions.Get(gameID)
	if !ok {
		return "", 0, model.ErrNotFound
	}
	g.WithLock(func(s *model.Session) {
		adapter := s.Engine.(searchAdapter)
		if _, budgetErr := adapter.EnsureBudget(ctx, target, r.deadline()); budgetErr != nil {
			err = budgetErr
			return
		}
		sorted, sortErr := adapter.SortedActions(ctx, s.CurrentTurn == model.Slot1)
		if sortErr != nil {
			err = sortErr
			return
		}
		action, err = adapter.BestAction(ctx, 0)
		if err != nil {
			return
		}
		total := 0
		for _, sa := range sorted {
			total += sa.Visits
		}
		if total > 0 && len(sorted) > 0 {
			confidence = float64(sorted[0].Visits) / float64(total)
		}
	})
	return action, confidence, translateErr(err)
}

// Render proxies to the Search Adapter (spec.md §4.2 render).
func (r *Router) Render(ctx context.Context, gameID model.GameId, perspective bool) (string, error) {
	g, ok := r.sessions.Get(gameID)
	if !ok {
		return "", model.ErrNotFound
	}
	var board string
	var err error
	g.WithLock(func(s *model.Session) {
		board, err = s.Engine.(searchAdapter).Render(ctx, perspective)
	})
	return board, translateErr(err)
}

// searchAdapter is the subset of *searchadapter.Adapter the Turn Router
// calls. Declared locally (rather than importing the concrete type into
// every call site) so tests can substitute a fake kernel-backed adapter
// without constructing a real one.
type searchAdapter interface {
	LegalActions(ctx context.Context) ([]string, error)
	ApplyMove(ctx context.Context, action string, perspective bool) error
	IsTerminal(ctx context.Context) (bool, error)
	SortedActions(ctx context.Context, perspective bool) ([]kernel.ScoredAction, error)
	Evaluation(ctx context.Context) (float64, bool, error)
	EnsureBudget(ctx context.Context, target int, deadline time.Time) (int, error)
	BestAction(ctx context.Context, epsilon float64) (string, error)
	Render(ctx context.Context, perspective bool) (string, error)
}

var _ searchAdapter = (*searchadapter.Adapter)(nil)
