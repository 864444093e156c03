package boardkernel

import (
	"fmt"
	"sort"

	"github.com/corridors/server/internal/kernel"
)

const maxRolloutPlies = 60

// Engine implements kernel.Kernel over a Board and its flat Monte Carlo
// search state. It is single-threaded per instance, as the contract
// requires — the Search Adapter is solely responsible for serializing calls.
type Engine struct {
	board  *Board
	search *search
}

// New constructs a fresh Engine seeded for reproducible rollouts, suitable
// for passing as a kernel.Factory.
func New(seed int64) kernel.Kernel {
	return &Engine{board: NewBoard(seed), search: newSearch()}
}

// RunSimulations performs up to n rollouts in one synchronous call. The
// Search Adapter is responsible for calling this in the fixed-size batches
// spec.md §4.1 describes and for polling cancellation between calls — the
// kernel itself never sees a cancellation flag, matching the real contract
// (spec.md §6.1: the kernel is a synchronous collaborator).
func (e *Engine) RunSimulations(n int) int {
	return e.board.runSimulations(e.search, n, maxRolloutPlies, nil)
}

func (e *Engine) LegalActions() []string { return e.board.LegalActions() }

func (e *Engine) ApplyMove(action string, perspective bool) error {
	if err := e.board.Apply(action, perspective); err != nil {
		return fmt.Errorf("%w: %v", kernel.ErrInvalidAction, err)
	}
	e.search = newSearch()
	return nil
}

func (e *Engine) BestAction() (string, error) {
	actions := e.board.LegalActions()
	if len(actions) == 0 {
		return "", kernel.ErrInvalidAction
	}
	sorted := e.SortedActions(false)
	if len(sorted) == 0 {
		return actions[0], nil
	}
	return sorted[0].Action, nil
}

func (e *Engine) SortedActions(perspective bool) []kernel.ScoredAction {
	_ = perspective
	out := make([]kernel.ScoredAction, 0, len(e.search.stats))
	for _, st := range e.search.stats {
		equity := 0.5
		if st.visits > 0 {
			equity = st.wins / float64(st.visits)
		}
		out = append(out, kernel.ScoredAction{Action: st.action, Visits: st.visits, Equity: equity})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Visits != out[j].Visits {
			return out[i].Visits > out[j].Visits
		}
		return out[i].Action < out[j].Action
	})
	return out
}

func (e *Engine) Evaluation() (float64, bool) {
	if e.search.total == 0 {
		return 0, false
	}
	var wins, visits float64
	for _, st := range e.search.stats {
		wins += st.wins
		visits += float64(st.visits)
	}
	if visits == 0 {
		return 0, false
	}
	// Map win-rate in [0,1] onto the kernel's [-1,1] evaluation range.
	return wins/visits*2 - 1, true
}

func (e *Engine) VisitCount() int { return e.search.total }

func (e *Engine) Display(perspective bool) string { return e.board.Display(perspective) }

func (e *Engine) IsTerminal() bool { return e.board.IsTerminal() }

func (e *Engine) Reset() {
	e.board = NewBoard(0)
	e.search = newSearch()
}

var _ kernel.Kernel = (*Engine)(nil)
