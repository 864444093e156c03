package turnrouter

import (
	"github.com/corridors/server/internal/config"
	"github.com/corridors/server/internal/fanout"
	"github.com/corridors/server/internal/registry"
	"github.com/corridors/server/internal/searchadapter"
	"go.uber.org/fx"
)

// routerDeps collects the fx graph's inputs for New, including the
// Enqueuer edge that is only satisfiable once the AI Scheduler module is
// also in the graph (its fx.As annotation lives in the aischeduler module).
type routerDeps struct {
	fx.In

	Sessions *registry.SessionRegistry
	Adapters searchadapter.Factory
	Fanout   *fanout.RoomRegistry
	AI       Enqueuer
	Config   *config.Holder
}

// Module provides a *Router to the fx graph, using the ambient turn
// timeout (spec.md §5's "5x expected search time" default). The Enqueuer
// dependency (satisfied by *aischeduler.Scheduler) is supplied by the
// aischeduler module's own fx.As annotation.
var Module = fx.Module("turnrouter",
	fx.Provide(func(deps routerDeps) *Router {
		return New(deps.Sessions, deps.Adapters, deps.Fanout, deps.AI, deps.Config.Get().TurnTimeout)
	}),
)
