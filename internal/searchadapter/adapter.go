// Package searchadapter wraps a kernel.Kernel with the asynchronous,
// cancellable, thread-safe interface spec.md §4.1 demands. The concurrency
// shape is grounded on the teacher's registry.Cell: a shared mutex guards
// the kernel the way Cell.mu guards its sessions map, and a per-run
// cancellation signal is threaded through exactly like connect.go's
// context-deadline-then-evict backpressure algorithm, generalized from
// "give up delivering to a slow subscriber" to "give up searching when the
// deadline passes."
package searchadapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corridors/server/internal/domain/model"
	"github.com/corridors/server/internal/kernel"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// State is the Adapter's lifecycle stage (spec.md §4.1: "fresh → running →
// idle → … → closed").
type State int32

const (
	StateFresh State = iota
	StateRunning
	StateIdle
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateRunning:
		return "running"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// run tracks one in-flight simulation run so a subsequent operation can
// cancel it and wait for it to actually stop before proceeding, per
// spec.md §4.1's "any operation that initiates a new run cancels the
// previous run first and awaits its cessation before starting."
type run struct {
	cancel chan struct{}
	done   chan struct{}
}

// Adapter is the concurrency-safe façade over one game's kernel.Kernel.
type Adapter struct {
	gameID model.GameId
	kernel kernel.Kernel
	tracer trace.Tracer

	batchSize        int
	gracePeriod      time.Duration
	breakerThreshold uint32
	executor         *executor
	breaker          *gobreaker.CircuitBreaker

	kernelMu sync.Mutex
	state    atomic.Int32
	current  atomic.Pointer[run]
	closeOnce sync.Once
}

// Factory constructs a fresh Adapter wrapping a fresh kernel instance,
// invoked once per session by the Session Registry at create_session time.
type Factory func(gameID model.GameId, cfg model.Configuration) *Adapter

// NewFactory returns a Factory bound to kf (the reference boardkernel.New or
// a real engine) and a tracer for span emission.
func NewFactory(kf kernel.Factory, tracer trace.Tracer, opts ...Option) Factory {
	return func(gameID model.GameId, cfg model.Configuration) *Adapter {
		a := &Adapter{
			gameID:           gameID,
			kernel:           kf(cfg.RandomSeed),
			tracer:           tracer,
			batchSize:        100,
			gracePeriod:      time.Second,
			breakerThreshold: 3,
			executor:         defaultExecutor,
		}
		for _, opt := range opts {
			opt(a)
		}
		a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "searchadapter:" + gameID.String(),
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= a.breakerThreshold
			},
			// kernel.ErrInvalidAction is a legal-input rejection (spec.md
			// §4.1 "Fails with InvalidAction if rejected by the kernel"),
			// not a kernel fault — it must not count toward tripping, or a
			// few fat-fingered apply_move calls would brick an otherwise
			// healthy session (an open breaker rejects calls until its
			// open period ends; Reset does not close it).
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, kernel.ErrInvalidAction)
			},
		})
		a.state.Store(int32(StateFresh))
		return a
	}
}

func (a *Adapter) State() State { return State(a.state.Load()) }

func (a *Adapter) closed() bool { return a.State() == StateClosed }

// cancelCurrentRun signals any in-flight run to stop and waits (bounded by
// ctx) for it to release the kernel lock before the caller proceeds.
func (a *Adapter) cancelCurrentRun(ctx context.Context) {
	r := a.current.Load()
	if r == nil {
		return
	}
	select {
	case <-r.cancel:
	default:
		close(r.cancel)
	}
	select {
	case <-r.done:
	case <-ctx.Done():
	case <-time.After(a.gracePeriod):
	}
}

func (a *Adapter) span(ctx context.Context, name string) (context.Context, trace.Span) {
	if a.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return a.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("corridors.game_id", a.gameID.String()),
	))
}

// callKernel executes fn through the circuit breaker, recovering a kernel
// panic into an error so "the Adapter remains usable" afterward (spec.md
// §4.1 failure semantics).
func (a *Adapter) callKernel(fn func() (any, error)) (result any, err error) {
	return a.breaker.Execute(func() (res any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: kernel panic: %v", model.ErrInternal, r)
			}
		}()
		return fn()
	})
}

// RunSimulations ensures up to n additional simulations are performed,
// stopping early if cancelled or the deadline passes. It returns the number
// actually completed.
func (a *Adapter) RunSimulations(ctx context.Context, n int, deadline time.Time) (int, error) {
	if a.closed() {
		return 0, model.ErrAdapterClosed
	}
	ctx, span := a.span(ctx, "searchadapter.run_simulations")
	defer span.End()

	a.cancelCurrentRun(ctx)

	a.kernelMu.Lock()
	defer a.kernelMu.Unlock()
	if a.closed() {
		return 0, model.ErrAdapterClosed
	}

	r := &run{cancel: make(chan struct{}), done: make(chan struct{})}
	a.current.Store(r)
	a.state.Store(int32(StateRunning))
	defer func() {
		close(r.done)
		a.current.CompareAndSwap(r, nil)
		if !a.closed() {
			a.state.Store(int32(StateIdle))
		}
	}()

	var timer *time.Timer
	if !deadline.IsZero() {
		if d := time.Until(deadline); d > 0 {
			timer = time.AfterFunc(d, func() {
				select {
				case <-r.cancel:
				default:
					close(r.cancel)
				}
			})
			defer timer.Stop()
		} else {
			return 0, model.ErrEngineTimeout
		}
	}

	completed := 0
	for completed < n {
		select {
		case <-r.cancel:
			return completed, nil
		case <-ctx.Done():
			return completed, ctx.Err()
		default:
		}

		batch := a.batchSize
		if remaining := n - completed; remaining < batch {
			batch = remaining
		}

		var done int
		var batchErr error
		a.executor.run(func() {
			res, err := a.callKernel(func() (any, error) {
				return a.kernel.RunSimulations(batch), nil
			})
			if err != nil {
				batchErr = err
				return
			}
			done = res.(int)
		})
		if batchErr != nil {
			// spec.md §4.1: "Kernel exceptions surfacing from the batch
			// loop terminate the current run and are reported from the
			// initiating call" — a recovered panic or an open breaker
			// must not be swallowed into a silent partial success.
			return completed, batchErr
		}
		completed += done
		if done == 0 {
			// No progress this batch (e.g. the kernel has no legal
			// actions left to simulate from the root) — stop instead of
			// spinning forever, which matters most when there is no
			// deadline to bound the loop.
			return completed, nil
		}
	}
	return completed, nil
}

// EnsureBudget brings the cumulative simulation count to at least target,
// returning the current count.
func (a *Adapter) EnsureBudget(ctx context.Context, target int, deadline time.Time) (int, error) {
	if a.closed() {
		return 0, model.ErrAdapterClosed
	}
	current, err := a.VisitCount(ctx)
	if err != nil {
		return 0, err
	}
	if current >= target {
		return current, nil
	}
	completed, err := a.RunSimulations(ctx, target-current, deadline)
	return current + completed, err
}

// ApplyMove commits a move to the kernel state, cancelling any running
// search first.
func (a *Adapter) ApplyMove(ctx context.Context, action string, perspective bool) error {
	if a.closed() {
		return model.ErrAdapterClosed
	}
	_, span := a.span(ctx, "searchadapter.apply_move")
	defer span.End()

	a.cancelCurrentRun(ctx)
	a.kernelMu.Lock()
	defer a.kernelMu.Unlock()
	if a.closed() {
		return model.ErrAdapterClosed
	}

	_, err := a.callKernel(func() (any, error) {
		return nil, a.kernel.ApplyMove(action, perspective)
	})
	if err != nil {
		return err
	}
	a.state.Store(int32(StateIdle))
	return nil
}

// BestAction returns the kernel's chosen action, optionally perturbed by
// epsilon-greedy noise (epsilon in [0,1): with that probability a uniformly
// random legal-looking alternative from SortedActions is returned instead).
func (a *Adapter) BestAction(ctx context.Context, epsilon float64) (string, error) {
	if a.closed() {
		return "", model.ErrAdapterClosed
	}
	a.kernelMu.Lock()
	defer a.kernelMu.Unlock()
	if a.closed() {
		return "", model.ErrAdapterClosed
	}

	res, err := a.callKernel(func() (any, error) {
		return a.kernel.BestAction()
	})
	if err != nil {
		return "", err
	}
	best := res.(string)
	if epsilon <= 0 {
		return best, nil
	}

	sortedRes, err := a.callKernel(func() (any, error) {
		return a.kernel.SortedActions(false), nil
	})
	if err != nil || sortedRes == nil {
		return best, nil
	}
	sorted := sortedRes.([]kernel.ScoredAction)
	if len(sorted) <= 1 {
		return best, nil
	}
	if epsilonRoll(epsilon) {
		return sorted[epsilonIndex(len(sorted))].Action, nil
	}
	return best, nil
}

// LegalActions returns every action string legal for the current position,
// independent of any accumulated search statistics.
func (a *Adapter) LegalActions(ctx context.Context) ([]string, error) {
	if a.closed() {
		return nil, model.ErrAdapterClosed
	}
	a.kernelMu.Lock()
	defer a.kernelMu.Unlock()
	if a.closed() {
		return nil, model.ErrAdapterClosed
	}
	res, err := a.callKernel(func() (any, error) {
		return a.kernel.LegalActions(), nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

// SortedActions returns root children ordered by visit count, highest first.
func (a *Adapter) SortedActions(ctx context.Context, perspective bool) ([]kernel.ScoredAction, error) {
	if a.closed() {
		return nil, model.ErrAdapterClosed
	}
	a.kernelMu.Lock()
	defer a.kernelMu.Unlock()
	if a.closed() {
		return nil, model.ErrAdapterClosed
	}
	res, err := a.callKernel(func() (any, error) {
		return a.kernel.SortedActions(perspective), nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]kernel.ScoredAction), nil
}

// Evaluation returns the kernel's current root evaluation, or ok=false if
// none has been computed.
func (a *Adapter) Evaluation(ctx context.Context) (value float64, ok bool, err error) {
	if a.closed() {
		return 0, false, model.ErrAdapterClosed
	}
	a.kernelMu.Lock()
	defer a.kernelMu.Unlock()
	if a.closed() {
		return 0, false, model.ErrAdapterClosed
	}
	value, ok = a.kernel.Evaluation()
	return value, ok, nil
}

// VisitCount returns the total simulations accumulated at the root.
func (a *Adapter) VisitCount(ctx context.Context) (int, error) {
	if a.closed() {
		return 0, model.ErrAdapterClosed
	}
	a.kernelMu.Lock()
	defer a.kernelMu.Unlock()
	if a.closed() {
		return 0, model.ErrAdapterClosed
	}
	return a.kernel.VisitCount(), nil
}

// Render returns a human-readable board string.
func (a *Adapter) Render(ctx context.Context, perspective bool) (string, error) {
	if a.closed() {
		return "", model.ErrAdapterClosed
	}
	a.kernelMu.Lock()
	defer a.kernelMu.Unlock()
	if a.closed() {
		return "", model.ErrAdapterClosed
	}
	return a.kernel.Display(perspective), nil
}

// IsTerminal reports whether the kernel considers the game over.
func (a *Adapter) IsTerminal(ctx context.Context) (bool, error) {
	if a.closed() {
		return false, model.ErrAdapterClosed
	}
	a.kernelMu.Lock()
	defer a.kernelMu.Unlock()
	if a.closed() {
		return false, model.ErrAdapterClosed
	}
	return a.kernel.IsTerminal(), nil
}

// Reset returns the kernel to the initial position, cancelling any running
// simulation first.
func (a *Adapter) Reset(ctx context.Context) error {
	if a.closed() {
		return model.ErrAdapterClosed
	}
	a.cancelCurrentRun(ctx)
	a.kernelMu.Lock()
	defer a.kernelMu.Unlock()
	if a.closed() {
		return model.ErrAdapterClosed
	}
	a.kernel.Reset()
	a.state.Store(int32(StateIdle))
	return nil
}

// Close is idempotent: it cancels outstanding work and releases kernel
// resources. Operations after Close fail with model.ErrAdapterClosed
// (spec.md §4.1 failure semantics).
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.cancelCurrentRun(context.Background())
		a.kernelMu.Lock()
		defer a.kernelMu.Unlock()
		a.state.Store(int32(StateClosed))
	})
	return nil
}

var _ model.SearchEngine = (*Adapter)(nil)
