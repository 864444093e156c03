package fanout

import (
	"github.com/corridors/server/internal/config"
	"go.uber.org/fx"
)

// Module provides a *RoomRegistry to the fx graph, sized from the ambient
// configuration snapshot (spec.md §6.5), following the teacher's
// registry/module.go fx.Module shape.
var Module = fx.Module("fanout",
	fx.Provide(func(holder *config.Holder) *RoomRegistry {
		cfg := holder.Get()
		return NewRoomRegistry(
			WithMailboxSize(cfg.FanoutMailboxSize),
			WithHeartbeatPeriod(cfg.HeartbeatPeriod),
			WithHeartbeatMissMultiplier(cfg.HeartbeatMissMultiplier),
		)
	}),
)
