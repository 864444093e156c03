package reaper

import (
	"context"
	"log/slog"

	"github.com/corridors/server/internal/config"
	"github.com/corridors/server/internal/fanout"
	"github.com/corridors/server/internal/registry"
	"go.uber.org/fx"
)

// Module provides a *Reaper and starts/stops its sweep loop with the fx
// graph's lifecycle — Start on OnStart, Stop on OnStop — so it is the first
// thing to stop at shutdown, per spec.md §9's teardown order (Reaper stop
// -> drain AI workers -> close Adapters -> close subscriptions).
var Module = fx.Module("reaper",
	fx.Provide(func(lc fx.Lifecycle, sessions *registry.SessionRegistry, rooms *fanout.RoomRegistry, logger *slog.Logger, holder *config.Holder) *Reaper {
		cfg := holder.Get()
		r := New(sessions, rooms, logger,
			WithSweepInterval(cfg.ReaperSweepInterval),
			WithStaleThreshold(cfg.ReaperStaleThreshold),
		)
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				r.Start()
				return nil
			},
			OnStop: func(context.Context) error {
				r.Stop()
				return nil
			},
		})
		return r
	}),
)
