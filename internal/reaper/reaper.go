// Package reaper implements spec.md §4.4: a periodic sweep over the Session
// Registry that cancels sessions idle past a staleness threshold. It is
// grounded directly on the teacher's hub.go runEvictor/performEviction
// idiom — a ticker-driven goroutine with a stop channel, ranging a sync.Map
// and reclaiming whatever has gone idle — generalized from "idle user
// cells" to "stale in-progress games."
package reaper

import (
	"log/slog"
	"sync"
	"time"

	"github.com/corridors/server/internal/domain/event"
	"github.com/corridors/server/internal/domain/model"
	"github.com/corridors/server/internal/fanout"
	"github.com/corridors/server/internal/registry"
)

// Reaper periodically scans the Session Registry for sessions whose
// last-activity time is older than the stale threshold (spec.md §4.4).
type Reaper struct {
	sessions *registry.SessionRegistry
	rooms    *fanout.RoomRegistry
	logger   *slog.Logger

	sweepInterval  time.Duration
	staleThreshold time.Duration

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New constructs a Reaper with production defaults (S=60s, T=1h) unless
// overridden by Option, matching spec.md §4.4's default/test-mode split.
func New(sessions *registry.SessionRegistry, rooms *fanout.RoomRegistry, logger *slog.Logger, opts ...Option) *Reaper {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Reaper{
		sessions:       sessions,
		rooms:          rooms,
		logger:         logger,
		sweepInterval:  o.sweepInterval,
		staleThreshold: o.staleThreshold,
		stopCh:         make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Start runs the sweep loop in a background goroutine until Stop is called,
// mirroring the teacher's go h.runEvictor() call from NewHub.
func (r *Reaper) Start() {
	go r.run()
}

func (r *Reaper) run() {
	defer close(r.done)
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("reaper sweep complete", "reaped", n)
			}
		}
	}
}

// Stop halts the sweep loop and waits for the in-flight sweep, if any, to
// finish. Idempotent.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.done
}

// Sweep runs one reclamation pass and returns the number of sessions
// reaped. Exported so tests (and spec.md §8's "reaper sweep with T=0"
// boundary scenario) can drive it deterministically without waiting on the
// ticker.
func (r *Reaper) Sweep() int {
	now := time.Now()
	var toDelete []model.GameId
	reaped := 0

	r.sessions.Range(func(id model.GameId, g *registry.GuardedSession) bool {
		var (
			wentStale bool
			engine    model.SearchEngine
		)
		// TryLock, never WithLock: a sweep must not stall behind an
		// in-flight player operation (spec.md §4.4 "take the per-session
		// guard briefly"). A contended session is simply skipped this pass
		// and reconsidered next tick.
		locked := g.TryLock(func(s *model.Session) {
			if s.Status != model.InProgress {
				return
			}
			if now.Sub(s.LastActivityAt) < r.staleThreshold {
				return
			}
			s.Status = model.Cancelled
			s.TerminationReason = model.ReasonStale
			s.LastActivityAt = now
			engine = s.Engine
			wentStale = true
		})
		if !locked || !wentStale {
			return true
		}

		if engine != nil {
			_ = engine.Close()
		}
		r.rooms.Broadcast(event.New(id, event.GameEnded, event.GameEndedPayload{
			Reason: model.ReasonStale,
		}))
		toDelete = append(toDelete, id)
		reaped++
		return true
	})

	for _, id := range toDelete {
		r.sessions.Delete(id)
	}
	return reaped
}
