package matchmaker

import (
	"github.com/corridors/server/internal/turnrouter"
	"go.uber.org/fx"
)

// Module provides a *Matchmaker backed directly by *turnrouter.Router,
// which satisfies SessionCreator without any fx.As indirection since the
// dependency runs turnrouter -> matchmaker and never the other way.
var Module = fx.Module("matchmaker",
	fx.Provide(func(router *turnrouter.Router) *Matchmaker {
		return New(router)
	}),
)
