package aischeduler

import (
	"log/slog"

	"github.com/corridors/server/internal/config"
	"github.com/corridors/server/internal/fanout"
	"github.com/corridors/server/internal/turnrouter"
	"go.uber.org/fx"
)

type schedulerDeps struct {
	fx.In

	Lifecycle fx.Lifecycle
	Router    *turnrouter.Router
	Fanout    *fanout.RoomRegistry
	Logger    *slog.Logger
	Config    *config.Holder
}

// Module provides a *Scheduler to the fx graph and, via fx.As, exposes it
// as the turnrouter.Enqueuer the Turn Router module declares — the
// Hubber/Hub interface seam the teacher draws, resolved here since both
// sides are statically known rather than deferred to the composition root.
var Module = fx.Module("aischeduler",
	fx.Provide(
		fx.Annotate(
			func(deps schedulerDeps) (*Scheduler, error) {
				cfg := deps.Config.Get()
				return New(deps.Lifecycle, deps.Router, deps.Fanout, deps.Logger,
					WithWorkers(cfg.AIWorkers),
					WithEnqueueTimeout(cfg.AIEnqueueTimeout),
					WithTurnTimeout(cfg.AITurnTimeout),
				)
			},
			fx.As(new(turnrouter.Enqueuer)),
		),
	),
)
